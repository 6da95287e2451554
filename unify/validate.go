package unify

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"blainsmith.com/go/seahash"
	gerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/csem/encoding/bamstream"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// ValidateOpts defines the behavior of Validate.
type ValidateOpts struct {
	// WeightTag is the aux tag prefix holding the posterior probability.
	WeightTag string
	// ZeroWeight replaces weights that are exactly zero. Must be positive.
	ZeroWeight float64
	// Seed from which the seed of every pass is derived. Zero picks a
	// time-based seed.
	Seed int64
	// Repeats is the number of passes over the input.
	Repeats int
	// Parallelism is the number of passes run concurrently.
	Parallelism int
}

// DefaultValidateOpts are the default values of ValidateOpts.
var DefaultValidateOpts = ValidateOpts{
	WeightTag:   DefaultWeightTag,
	ZeroWeight:  DefaultZeroWeight,
	Repeats:     10000,
	Parallelism: 1,
}

// Opener opens a fresh Source over the whole input. Validate calls it once
// per pass, possibly concurrently.
type Opener func(ctx context.Context) (bamstream.Source, error)

// FileOpener returns an Opener that opens path with bamstream.Open.
func FileOpener(path string, opts bamstream.OpenOpts) Opener {
	return func(ctx context.Context) (bamstream.Source, error) {
		return bamstream.Open(ctx, path, opts)
	}
}

// Identity names one candidate alignment across passes.
type Identity struct {
	// Name of the fragment.
	Name string
	// RefName is the reference of the first record of the pair.
	RefName string
	// Pos is the 0-based alignment start of the first record of the pair.
	Pos int
	// Weight is the text of the last aux field of the first record; CSEM
	// appends the posterior probability last.
	Weight string
}

// String renders the identity as name-ref-pos-weight.
func (id Identity) String() string {
	return fmt.Sprintf("%s-%s-%d-%s", id.Name, id.RefName, id.Pos, id.Weight)
}

func newIdentity(p Pair) Identity {
	r := p[0]
	id := Identity{Name: r.Name, RefName: r.Ref.Name(), Pos: r.Pos}
	if n := len(r.AuxFields); n > 0 {
		id.Weight = bamstream.AuxText(r.AuxFields[n-1])
	}
	return id
}

// candidateTally counts how often one candidate was picked.
type candidateTally struct {
	id     Identity
	weight float64
	count  int
}

// fragmentTally counts the picks among the candidates of one fragment.
type fragmentTally struct {
	// key is the fragment name followed by the identity of every candidate.
	key        string
	name       string
	weights    []float64
	candidates []candidateTally
}

// fragmentKey identifies a fragment by its name and candidate loci, so that
// two groups sharing a name but not their alignments are tallied apart.
func fragmentKey(name string, ids []Identity) string {
	var b strings.Builder
	b.WriteString(name)
	for _, id := range ids {
		b.WriteByte('\t')
		b.WriteString(id.String())
	}
	return b.String()
}

// Tally accumulates selection counts over passes. Thread compatible.
type Tally struct {
	passes int
	// Fragments in input order.
	frags []*fragmentTally
	byKey map[string]*fragmentTally
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	return &Tally{byKey: map[string]*fragmentTally{}}
}

// Add records that candidate i of f was picked.
func (t *Tally) Add(f *Fragment, i int) error {
	if i < 0 || i >= len(f.Pairs) || len(f.Pairs) != len(f.Weights) {
		return errors.Wrapf(ErrMalformedGroup, "fragment %s: candidate %d of %d pairs, %d weights",
			f.Name, i, len(f.Pairs), len(f.Weights))
	}
	ids := make([]Identity, len(f.Pairs))
	for j, p := range f.Pairs {
		ids[j] = newIdentity(p)
	}
	key := fragmentKey(f.Name, ids)
	ft := t.byKey[key]
	if ft == nil {
		ft = &fragmentTally{
			key:        key,
			name:       f.Name,
			weights:    append([]float64(nil), f.Weights...),
			candidates: make([]candidateTally, len(f.Pairs)),
		}
		for j, id := range ids {
			ft.candidates[j] = candidateTally{id: id, weight: f.Weights[j]}
		}
		t.frags = append(t.frags, ft)
		t.byKey[key] = ft
	}
	ft.candidates[i].count++
	return nil
}

// Merge adds the counts of other to t.
func (t *Tally) Merge(other *Tally) {
	t.passes += other.passes
	for _, o := range other.frags {
		ft := t.byKey[o.key]
		if ft == nil {
			c := *o
			c.candidates = append([]candidateTally(nil), o.candidates...)
			t.frags = append(t.frags, &c)
			t.byKey[c.key] = &c
			continue
		}
		for i := range o.candidates {
			ft.candidates[i].count += o.candidates[i].count
		}
	}
}

// Passes returns the number of passes recorded in t.
func (t *Tally) Passes() int { return t.passes }

// passSeed derives the seed of one pass from the run seed, so that a run
// is reproducible regardless of how passes are spread over workers.
func passSeed(seed int64, pass int) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(pass))
	return seahash.Sum64(buf[:])
}

// runPass runs grouping and selection once over a fresh Source.
func runPass(ctx context.Context, open Opener, opts ValidateOpts, rng rand.Source, t *Tally) (err error) {
	src, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		e := gerrors.Once{}
		e.Set(err)
		e.Set(src.Close())
		err = e.Err()
	}()
	sel := NewSelector(rng, opts.ZeroWeight)
	_, err = selectFragments(src, opts.WeightTag, sel, t.Add)
	if err == nil {
		t.passes++
	}
	return err
}

// Validate runs the selection opts.Repeats times over the input, each time
// re-reading it from scratch, and reports how often every candidate was
// picked. Passes are independent; with opts.Parallelism > 1 they run
// concurrently, each worker keeping its own Tally until all passes are done.
func Validate(ctx context.Context, open Opener, opts ValidateOpts) (*Report, error) {
	if err := (&Opts{WeightTag: opts.WeightTag, ZeroWeight: opts.ZeroWeight}).validate(); err != nil {
		return nil, err
	}
	if opts.Repeats <= 0 {
		return nil, errors.Errorf("repeats %d must be positive", opts.Repeats)
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	if parallelism > opts.Repeats {
		parallelism = opts.Repeats
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	start := time.Now()
	tallies := make([]*Tally, parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startPass := (jobIdx * opts.Repeats) / parallelism
		endPass := ((jobIdx + 1) * opts.Repeats) / parallelism
		t := NewTally()
		for pass := startPass; pass < endPass; pass++ {
			rng := rand.NewSource(passSeed(seed, pass))
			if err := runPass(ctx, open, opts, rng, t); err != nil {
				return errors.Wrapf(err, "pass %d", pass)
			}
		}
		tallies[jobIdx] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	total := NewTally()
	for _, t := range tallies {
		total.Merge(t)
	}
	log.Printf("validate: %d passes over %d fragments in %v", total.passes, len(total.frags), time.Since(start))
	return total.Report(opts.ZeroWeight), nil
}
