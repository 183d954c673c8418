package simart

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// Schema returns the JSON schema of the scraper input ("articles") or of the
// cluster output ("clusters").
func Schema(name string) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var schema *jsonschema.Schema
	switch name {
	case "articles":
		schema = reflector.Reflect(&[]Article{})
	case "clusters":
		schema = reflector.Reflect(&[]Cluster{})
	default:
		return nil, fmt.Errorf("unknown schema %q, want articles or clusters", name)
	}
	if schema.Type == "" {
		schema.Type = "array"
	}
	return schema, nil
}

// NewSchemaCmd prints the JSON schema of the article or cluster records.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [articles|clusters]",
		Short:     "Print the JSON schema of scraper input or cluster output",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"articles", "clusters"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "articles"
			if len(args) > 0 {
				name = args[0]
			}
			schema, err := Schema(name)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
