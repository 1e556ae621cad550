package neat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatFunctions(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	assert.Equal(t, 2.5, Mean(values))
	assert.InDelta(t, math.Sqrt(5.0/3.0), Stdev(values), 1e-12)
	assert.Equal(t, 10.0, Sum(values))
	assert.Equal(t, 4.0, MaxFloat(values))
	assert.Equal(t, 1.0, MinFloat(values))
	assert.Equal(t, 2.5, Median(values))
	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "median does not reorder its input")
}

func TestStatFunctions_Empty(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.Zero(t, Stdev([]float64{7}))
	assert.Zero(t, Sum(nil))
	assert.True(t, math.IsInf(MaxFloat(nil), -1))
	assert.True(t, math.IsInf(MinFloat(nil), 1))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestStatFunctions_Registry(t *testing.T) {
	for _, name := range []string{"mean", "stdev", "sum", "max", "min", "median"} {
		assert.Contains(t, StatFunctions, name)
	}
	assert.Equal(t, 3.0, StatFunctions["max"]([]float64{1, 3, 2}))
}
