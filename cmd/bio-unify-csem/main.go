package main

// bio-unify-csem picks one read pair per fragment from a read-name-sorted BAM
// file produced by CSEM. Among the candidate alignments of a multimapping
// fragment, the pair is drawn at random with probability proportional to the
// posterior probability stored in the ZW aux tag.
//
// Usage: bio-unify-csem [-o output.bam] input.bam

import (
	"flag"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/csem/encoding/bamstream"
	"github.com/grailbio/csem/unify"
)

var (
	outFlag         = flag.String("o", unify.DefaultOpts.OutputPath, "Output BAM file")
	formatFlag      = flag.String("format", "", "Input format, 'bam' or 'sam'. Guessed from the input path if empty")
	weightTagFlag   = flag.String("weight-tag", unify.DefaultOpts.WeightTag, "Aux tag (or tag prefix) holding the posterior probability")
	zeroWeightFlag  = flag.Float64("zero-weight", unify.DefaultOpts.ZeroWeight, "Weight used in place of a posterior probability of exactly 0")
	seedFlag        = flag.Int64("seed", 0, "Random seed. 0 picks a time-based seed")
	levelFlag       = flag.Int("compression-level", unify.DefaultOpts.CompressionLevel, "gzip level of the output BGZF blocks")
	parallelismFlag = flag.Int("parallelism", unify.DefaultOpts.Parallelism, "Number of BGZF (de)compression threads")
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage: bio-unify-csem [flags] <input>

Picks a single pair of reads among the multimapping alignments of each fragment
of a BAM file sorted by read name. The pair is drawn with probability
proportional to the posterior probability in the "ZW:f:p" aux field of the first
read of each candidate pair. Fragments with one alignment are copied as is.
<input> may be '-' to read BAM from stdin.

`)
		flag.PrintDefaults()
	}
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	opts := unify.DefaultOpts
	opts.OutputPath = *outFlag
	opts.WeightTag = *weightTagFlag
	opts.ZeroWeight = *zeroWeightFlag
	opts.Seed = *seedFlag
	opts.CompressionLevel = *levelFlag
	opts.Parallelism = *parallelismFlag
	if *formatFlag != "" {
		if opts.Format = bamstream.ParseFileType(*formatFlag); opts.Format == bamstream.Unknown {
			log.Fatalf("unknown input format %q", *formatFlag)
		}
	}
	if _, err := unify.Unify(vcontext.Background(), flag.Arg(0), opts); err != nil {
		log.Fatalf("bio-unify-csem %v: %v", flag.Arg(0), err)
	}
}
