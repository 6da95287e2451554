package unify

import (
	"context"
	"fmt"

	gerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/csem/encoding/bamstream"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Opts defines the behavior of Unify.
type Opts struct {
	// OutputPath is the BAM file to create.
	OutputPath string
	// Format of the input. Guessed from the path if Unknown.
	Format bamstream.FileType
	// WeightTag is the aux tag prefix holding the posterior probability.
	WeightTag string
	// ZeroWeight replaces weights that are exactly zero. Must be positive.
	ZeroWeight float64
	// Seed of the random source. Zero picks a time-based seed.
	Seed int64
	// CompressionLevel of the output BGZF blocks.
	CompressionLevel int
	// Parallelism is the number of BGZF (de)compressors for BAM input and
	// output. Selection itself is always sequential.
	Parallelism int
}

// DefaultOpts are the default values of Opts.
var DefaultOpts = Opts{
	OutputPath:       "output.bam",
	WeightTag:        DefaultWeightTag,
	ZeroWeight:       DefaultZeroWeight,
	CompressionLevel: gzip.DefaultCompression,
	Parallelism:      1,
}

func (o *Opts) validate() error {
	if o.WeightTag == "" || len(o.WeightTag) > 2 {
		return errors.Errorf("weight tag %q must be one or two characters", o.WeightTag)
	}
	if !(o.ZeroWeight > 0) {
		return errors.Errorf("zero weight %v must be positive", o.ZeroWeight)
	}
	return nil
}

// Stats summarizes one pass over the input.
type Stats struct {
	// Records is the number of input records.
	Records int
	// Fragments is the number of fragments, i.e., the number of pairs
	// selected.
	Fragments int
	// Multimappers is the number of fragments with more than one candidate.
	Multimappers int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d records, %d fragments, %d multimapping", s.Records, s.Fragments, s.Multimappers)
}

// RecordWriter receives the records of the selected pairs.
// *bamstream.Writer implements it.
type RecordWriter interface {
	Write(r *sam.Record) error
}

// selectFragments drives grouping and selection over src. It calls emit for
// every fragment with the index of the chosen candidate, in input order.
func selectFragments(src bamstream.Source, weightTag string, sel *Selector, emit func(f *Fragment, i int) error) (Stats, error) {
	var stats Stats
	g := NewGrouper(src, weightTag)
	for g.Scan() {
		f := g.Fragment()
		i, err := sel.SelectIndex(f.Weights)
		if err != nil {
			return stats, errors.Wrapf(err, "fragment %s", f.Name)
		}
		if len(f.Pairs) > 1 {
			stats.Multimappers++
			if log.At(log.Debug) {
				log.Debug.Printf("fragment %s: picked candidate %d of %d (weights %v)", f.Name, i, len(f.Pairs), f.Weights)
			}
		}
		if err := emit(f, i); err != nil {
			return stats, err
		}
	}
	stats.Records = g.NumRecords()
	stats.Fragments = g.NumFragments()
	return stats, g.Err()
}

// UnifySource reads the name-sorted records of src and writes both records of
// one randomly chosen candidate per fragment to w. It does not close src or
// w.
func UnifySource(src bamstream.Source, w RecordWriter, rng rand.Source, opts Opts) (Stats, error) {
	if err := opts.validate(); err != nil {
		return Stats{}, err
	}
	sel := NewSelector(rng, opts.ZeroWeight)
	return selectFragments(src, opts.WeightTag, sel, func(f *Fragment, i int) error {
		p := f.Pairs[i]
		if err := w.Write(p[0]); err != nil {
			return err
		}
		return w.Write(p[1])
	})
}

// Unify reads the BAM (or SAM) file at inputPath and writes one candidate
// pair per fragment to opts.OutputPath. The output has the header of the
// input. Both files are closed on every path.
func Unify(ctx context.Context, inputPath string, opts Opts) (stats Stats, err error) {
	if err = opts.validate(); err != nil {
		return
	}
	src, err := bamstream.Open(ctx, inputPath, bamstream.OpenOpts{Format: opts.Format, Parallelism: opts.Parallelism})
	if err != nil {
		return
	}
	var out *bamstream.Writer
	defer func() {
		e := gerrors.Once{}
		e.Set(err)
		if out != nil {
			e.Set(out.Close())
		}
		e.Set(src.Close())
		err = e.Err()
	}()

	out, err = bamstream.Create(ctx, opts.OutputPath, src.Header(), bamstream.WriteOpts{
		CompressionLevel: opts.CompressionLevel,
		Parallelism:      opts.Parallelism,
	})
	if err != nil {
		return
	}
	stats, err = UnifySource(src, out, NewSource(opts.Seed), opts)
	if err == nil {
		log.Printf("%s: %v; wrote %d records to %s", inputPath, stats, 2*stats.Fragments, opts.OutputPath)
	}
	return
}
