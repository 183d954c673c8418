package simart

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	schema, err := Schema("articles")
	require.NoError(t, err)
	assert.Equal(t, "array", schema.Type)
	require.NotNil(t, schema.Items)
	_, ok := schema.Items.Properties.Get("url")
	assert.True(t, ok)

	schema, err = Schema("clusters")
	require.NoError(t, err)
	require.NotNil(t, schema.Items)
	_, ok = schema.Items.Properties.Get("similarity_weight")
	assert.True(t, ok)

	_, err = Schema("videos")
	assert.Error(t, err)
}

func TestSchemaCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := NewSchemaCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"clusters"})
	require.NoError(t, cmd.Execute())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "array", decoded["type"])
}
