package unify

import (
	"github.com/grailbio/csem/encoding/bamstream"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Pair is one candidate alignment of a fragment: the two records of the read
// pair, in input order.
type Pair [2]*sam.Record

// Fragment is the full set of candidate alignments of one read pair.
//
// INVARIANT: len(Pairs) == len(Weights) >= 1, and both records of every pair
// are non-nil.
type Fragment struct {
	Name string
	// Pairs lists the candidates in input order.
	Pairs []Pair
	// Weights[i] is the posterior probability of Pairs[i], read from the
	// first record of the pair.
	Weights []float64
}

func (f *Fragment) validate() error {
	if len(f.Weights) == 0 {
		return errors.Wrapf(ErrMalformedGroup, "fragment %s has no candidates", f.Name)
	}
	if len(f.Pairs) != len(f.Weights) {
		return errors.Wrapf(ErrMalformedGroup, "fragment %s has %d pairs but %d weights",
			f.Name, len(f.Pairs), len(f.Weights))
	}
	for i, p := range f.Pairs {
		if p[0] == nil || p[1] == nil {
			return errors.Wrapf(ErrMalformedGroup, "fragment %s: candidate %d is not a pair", f.Name, i)
		}
	}
	return nil
}

// groupState describes what the Grouper expects next within a fragment.
type groupState int

const (
	// No record has been read yet.
	stateEmpty groupState = iota
	// The open pair holds its first record; the next record with the same
	// name completes it.
	stateFirstOfPair
	// The open pair is complete; the next record with the same name starts a
	// new candidate.
	stateSecondOfPair
)

// Grouper splits a name-sorted record stream into Fragments. It reads one
// record at a time and never looks further ahead than the record that tells
// whether the current fragment has ended. Thread compatible.
//
// Typical usage:
//
//   g := NewGrouper(src, DefaultWeightTag)
//   for g.Scan() {
//     f := g.Fragment()
//     ...
//   }
//   if err := g.Err(); err != nil {...}
type Grouper struct {
	src       bamstream.Source
	weightTag string

	// Fragment being accumulated. nil before the first record.
	cur *Fragment
	// Candidate being accumulated; appended to cur.Pairs once complete.
	open Pair
	// Number of records of cur seen so far. Its parity tells whether open
	// is half full.
	nCur int

	out    *Fragment
	err    error
	eof    bool
	nRecs  int
	nFrags int
}

// NewGrouper creates a Grouper that reads src. Weights are read from the aux
// field whose tag starts with weightTag.
func NewGrouper(src bamstream.Source, weightTag string) *Grouper {
	return &Grouper{src: src, weightTag: weightTag}
}

func (g *Grouper) state() groupState {
	switch {
	case g.cur == nil:
		return stateEmpty
	case g.nCur%2 == 1:
		return stateFirstOfPair
	default:
		return stateSecondOfPair
	}
}

// start opens a new fragment whose first record is r.
func (g *Grouper) start(r *sam.Record, w float64) {
	g.cur = &Fragment{
		Name:    r.Name,
		Weights: []float64{w},
	}
	g.open = Pair{r, nil}
	g.nCur = 1
}

// finish closes the current fragment and returns it.
func (g *Grouper) finish() (*Fragment, error) {
	f := g.cur
	if g.state() == stateFirstOfPair {
		return nil, errors.Wrapf(ErrMalformedGroup, "fragment %s: read %d has no mate", f.Name, g.nCur)
	}
	f.Pairs = append(f.Pairs, g.open)
	g.cur, g.open, g.nCur = nil, Pair{}, 0
	if err := f.validate(); err != nil {
		return nil, err
	}
	g.nFrags++
	return f, nil
}

// Scan reads records until a fragment is complete. It returns false at the
// end of the input or on error.
func (g *Grouper) Scan() bool {
	g.out = nil
	if g.err != nil || g.eof {
		return false
	}
	for g.src.Scan() {
		r := g.src.Record()
		w, err := Weight(r, g.weightTag)
		if err != nil {
			g.err = err
			return false
		}
		g.nRecs++
		switch {
		case g.state() == stateEmpty:
			g.start(r, w)
		case r.Name != g.cur.Name:
			f, err := g.finish()
			if err != nil {
				g.err = err
				return false
			}
			g.start(r, w)
			g.out = f
			return true
		case g.state() == stateSecondOfPair:
			g.cur.Pairs = append(g.cur.Pairs, g.open)
			g.cur.Weights = append(g.cur.Weights, w)
			g.open = Pair{r, nil}
			g.nCur++
		default:
			g.open[1] = r
			g.nCur++
		}
	}
	g.eof = true
	if err := g.src.Err(); err != nil {
		g.err = err
		return false
	}
	if g.cur == nil {
		return false
	}
	// No name change follows the last fragment.
	f, err := g.finish()
	if err != nil {
		g.err = err
		return false
	}
	g.out = f
	return true
}

// Fragment returns the fragment completed by the last successful Scan.
func (g *Grouper) Fragment() *Fragment {
	return g.out
}

// Err returns the error that stopped Scan, if any.
func (g *Grouper) Err() error {
	return g.err
}

// NumRecords returns the number of records read so far.
func (g *Grouper) NumRecords() int { return g.nRecs }

// NumFragments returns the number of fragments yielded so far.
func (g *Grouper) NumFragments() int { return g.nFrags }
