package unify

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultZeroWeight replaces weights that are exactly zero. Any tiny
// positive value works; it only has to keep the candidate selectable.
const DefaultZeroWeight = 1e-99

// NewSource creates the random source used for selection. A zero seed picks
// a time-based one.
func NewSource(seed int64) rand.Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.NewSource(uint64(seed))
}

// Selector picks one candidate of a fragment at random, with probability
// proportional to the candidate weights. Thread compatible.
type Selector struct {
	src        rand.Source
	zeroWeight float64
	// Weights of the fragment being selected, after zero substitution; reused
	// across calls.
	adjusted []float64
}

// NewSelector creates a Selector drawing from src. Weights equal to zero are
// replaced by zeroWeight, which must be positive.
func NewSelector(src rand.Source, zeroWeight float64) *Selector {
	if !(zeroWeight > 0) {
		panic("unify: zero weight must be positive")
	}
	return &Selector{src: src, zeroWeight: zeroWeight}
}

// SelectIndex returns the index of the chosen candidate. weights need not be
// normalized. A single candidate is returned without drawing a random number;
// otherwise exactly one value is drawn from the source.
func (s *Selector) SelectIndex(weights []float64) (int, error) {
	switch len(weights) {
	case 0:
		return -1, errors.Wrap(ErrMalformedGroup, "no candidates to select from")
	case 1:
		return 0, nil
	}
	s.adjusted = s.adjusted[:0]
	total := 0.0
	for i, w := range weights {
		// distuv.Categorical panics on negative weights.
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return -1, errors.Wrapf(ErrInvalidWeight, "weight[%d]=%v", i, w)
		}
		if w == 0 {
			w = s.zeroWeight
		}
		total += w
		s.adjusted = append(s.adjusted, w)
	}
	if math.IsInf(total, 0) {
		return -1, errors.Wrapf(ErrInvalidWeight, "weights %v overflow", weights)
	}
	return int(distuv.NewCategorical(s.adjusted, s.src).Rand()), nil
}

// Select returns one of pairs, chosen with probability proportional to
// weights.
//
// REQUIRES: len(pairs) == len(weights)
func (s *Selector) Select(pairs []Pair, weights []float64) (Pair, error) {
	if len(pairs) != len(weights) {
		return Pair{}, errors.Wrapf(ErrMalformedGroup, "%d pairs but %d weights", len(pairs), len(weights))
	}
	i, err := s.SelectIndex(weights)
	if err != nil {
		return Pair{}, err
	}
	return pairs[i], nil
}
