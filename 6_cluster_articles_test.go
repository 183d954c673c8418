package simart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// distances builds a symmetric distance matrix where every pair is far apart
// except those listed.
func distances(n int, close map[[2]int]float64) *mat.SymDense {
	d := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, 1)
		}
	}
	for pair, v := range close {
		d.SetSym(pair[0], pair[1], v)
	}
	return d
}

func TestDBSCAN(t *testing.T) {
	dist := distances(6, map[[2]int]float64{
		{0, 1}: 0.05,
		{1, 2}: 0.05,
		{0, 2}: 0.5,
		{3, 4}: 0.08,
	})

	labels := DBSCAN(dist, 0.1, 2)
	assert.Equal(t, []int{0, 0, 0, 1, 1, Noise}, labels)
}

func TestDBSCAN_BorderPoints(t *testing.T) {
	dist := distances(5, map[[2]int]float64{
		{0, 1}: 0.05,
		{1, 2}: 0.05,
		{0, 2}: 0.5,
		{3, 4}: 0.08,
	})

	// Only point 1 has three points (itself included) within eps.
	labels := DBSCAN(dist, 0.1, 3)
	assert.Equal(t, []int{0, 0, 0, Noise, Noise}, labels)
}

func TestDBSCAN_EpsIsInclusive(t *testing.T) {
	dist := distances(2, map[[2]int]float64{{0, 1}: 0.1})
	assert.Equal(t, []int{0, 0}, DBSCAN(dist, 0.1, 2))
}

func TestDBSCAN_AllNoise(t *testing.T) {
	dist := distances(3, nil)
	assert.Equal(t, []int{Noise, Noise, Noise}, DBSCAN(dist, 0.1, 2))
}

func TestClusterLabels(t *testing.T) {
	sim := mat.NewSymDense(4, nil)
	sim.SetSym(0, 1, 0.92)
	sim.SetSym(0, 2, 0.2)
	sim.SetSym(0, 3, 0.3)
	sim.SetSym(1, 2, 0.1)
	sim.SetSym(1, 3, 0.45)
	sim.SetSym(2, 3, 0.9)

	labels := ClusterLabels(sim, 0.9, 2)
	assert.Equal(t, []int{0, 0, 1, 1}, labels)
}

func TestClusterLabels_BelowThreshold(t *testing.T) {
	sim := mat.NewSymDense(2, nil)
	sim.SetSym(0, 1, 0.45)
	assert.Equal(t, []int{Noise, Noise}, ClusterLabels(sim, 0.9, 2))
}
