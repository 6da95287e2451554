package unify_test

import (
	"math"
	"testing"

	"github.com/grailbio/csem/unify"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func draw(t *testing.T, sel *unify.Selector, weights []float64, trials int) []float64 {
	counts := make([]float64, len(weights))
	for i := 0; i < trials; i++ {
		idx, err := sel.SelectIndex(weights)
		require.NoError(t, err)
		counts[idx]++
	}
	return counts
}

func TestSelectSingleton(t *testing.T) {
	src := newCountingSource(1)
	sel := unify.NewSelector(src, unify.DefaultZeroWeight)
	header := newHeader(t)
	pairs := []unify.Pair{{
		newRecord("a", header.Refs()[0], 10, sam.Read1, 0),
		newRecord("a", header.Refs()[0], 20, sam.Read2, 0),
	}}
	for _, w := range []float64{1, 0, 0.3} {
		p, err := sel.Select(pairs, []float64{w})
		require.NoError(t, err)
		assert.Equal(t, pairs[0], p)
	}
	assert.Equal(t, 0, src.draws)

	_, err := sel.SelectIndex([]float64{0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, src.draws)
}

func TestSelectFidelity(t *testing.T) {
	const trials = 20000
	sel := unify.NewSelector(rand.NewSource(12345), unify.DefaultZeroWeight)
	for _, weights := range [][]float64{
		{0.1, 0.2, 0.3, 0.4},
		{2, 6},       // Not normalized.
		{1e-3, 5e-3}, // Not normalized, small.
		{0.25, 0.25, 0.25, 0.25, 0},
	} {
		counts := draw(t, sel, weights, trials)
		total := 0.0
		for _, w := range weights {
			total += w
		}
		var obs, exp []float64
		for i, w := range weights {
			if w == 0 {
				continue
			}
			obs = append(obs, counts[i])
			exp = append(exp, trials*w/total)
		}
		x := stat.ChiSquare(obs, exp)
		dist := distuv.ChiSquared{K: float64(len(obs) - 1)}
		p := dist.Survival(x)
		assert.True(t, p > 1e-4, "weights %v: counts %v, chi2=%v p=%v", weights, counts, x, p)
	}
}

func TestSelectZeroWeight(t *testing.T) {
	const trials = 100000
	// With the default substitute, a zero next to a positive weight is
	// practically never picked.
	sel := unify.NewSelector(rand.NewSource(1), unify.DefaultZeroWeight)
	counts := draw(t, sel, []float64{0, 1}, trials)
	assert.Equal(t, float64(trials), counts[1])

	// All-zero weights are picked uniformly.
	counts = draw(t, sel, []float64{0, 0}, trials)
	assert.InDelta(t, 0.5, counts[0]/trials, 0.01)

	// A larger substitute shows that a zero weight stays selectable, at a
	// much lower rate than any positive weight.
	sel = unify.NewSelector(rand.NewSource(2), 1e-3)
	counts = draw(t, sel, []float64{0, 0.5, 0.5}, trials)
	assert.True(t, counts[0] > 0, "counts %v", counts)
	assert.True(t, counts[0] < counts[1]/100, "counts %v", counts)
	assert.True(t, counts[0] < counts[2]/100, "counts %v", counts)
}

func TestSelectProportion(t *testing.T) {
	const trials = 100000
	sel := unify.NewSelector(rand.NewSource(7), unify.DefaultZeroWeight)
	counts := draw(t, sel, []float64{0.3, 0.7}, trials)
	assert.InDelta(t, 0.7, counts[1]/trials, 0.02)
	assert.InDelta(t, 0.3, counts[0]/trials, 0.02)
}

func TestSelectErrors(t *testing.T) {
	sel := unify.NewSelector(rand.NewSource(1), unify.DefaultZeroWeight)
	_, err := sel.SelectIndex(nil)
	assert.Equal(t, unify.ErrMalformedGroup, errors.Cause(err))

	_, err = sel.Select(make([]unify.Pair, 2), []float64{1})
	assert.Equal(t, unify.ErrMalformedGroup, errors.Cause(err))

	for _, weights := range [][]float64{
		{0.5, -0.1},
		{math.NaN(), 1},
		{math.Inf(1), 1},
		{math.MaxFloat64, math.MaxFloat64},
	} {
		_, err = sel.SelectIndex(weights)
		assert.Equal(t, unify.ErrInvalidWeight, errors.Cause(err), "%v", weights)
	}
	assert.Panics(t, func() { unify.NewSelector(rand.NewSource(1), 0) })
}
