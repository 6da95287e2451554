package main

// bio-unify-csem-validate checks the random selection of bio-unify-csem. It
// repeats the selection many times over the same input and plots, for every
// candidate alignment that was picked, its weight against the number of times
// it was picked.
//
// Usage: bio-unify-csem-validate [-o prefix] [-n repeats] input.bam
//
// Outputs <prefix>.png, <prefix>.pdf and <prefix>.tsv.

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/csem/encoding/bamstream"
	"github.com/grailbio/csem/unify"
)

var (
	outPrefixFlag   = flag.String("o", "scatterplot", "Output path prefix; writes <prefix>.png, <prefix>.pdf and <prefix>.tsv")
	repeatsFlag     = flag.Int("n", unify.DefaultValidateOpts.Repeats, "Number of times to repeat the selection")
	formatFlag      = flag.String("format", "", "Input format, 'bam' or 'sam'. Guessed from the input path if empty")
	weightTagFlag   = flag.String("weight-tag", unify.DefaultValidateOpts.WeightTag, "Aux tag (or tag prefix) holding the posterior probability")
	zeroWeightFlag  = flag.Float64("zero-weight", unify.DefaultValidateOpts.ZeroWeight, "Weight used in place of a posterior probability of exactly 0")
	seedFlag        = flag.Int64("seed", 0, "Random seed. 0 picks a time-based seed")
	parallelismFlag = flag.Int("parallelism", unify.DefaultValidateOpts.Parallelism, "Number of passes run concurrently")
	minPValueFlag   = flag.Float64("min-pvalue", 1e-3, "Report fragments whose goodness-of-fit p-value is below this threshold")
)

func writeTSV(path string, report *unify.Report) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	return report.WriteTSV(out.Writer(ctx))
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <input>\n\n", os.Args[0])
		os.Stderr.WriteString(`Runs the bio-unify-csem selection -n times over <input>, a BAM file sorted by
read name, and plots the weight of each picked candidate against the number of
times it was picked.

`)
		flag.PrintDefaults()
	}
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	inPath := flag.Arg(0)
	openOpts := bamstream.OpenOpts{}
	if *formatFlag != "" {
		if openOpts.Format = bamstream.ParseFileType(*formatFlag); openOpts.Format == bamstream.Unknown {
			log.Fatalf("unknown input format %q", *formatFlag)
		}
	}
	if inPath == "-" {
		log.Fatalf("the input is read %d times and cannot be stdin", *repeatsFlag)
	}
	// Reject unsupported formats before the first pass.
	src, err := bamstream.Open(vcontext.Background(), inPath, openOpts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := src.Close(); err != nil {
		log.Fatalf("%v", err)
	}

	opts := unify.DefaultValidateOpts
	opts.Repeats = *repeatsFlag
	opts.WeightTag = *weightTagFlag
	opts.ZeroWeight = *zeroWeightFlag
	opts.Seed = *seedFlag
	opts.Parallelism = *parallelismFlag
	report, err := unify.Validate(vcontext.Background(), unify.FileOpener(inPath, openOpts), opts)
	if err != nil {
		log.Fatalf("bio-unify-csem-validate %v: %v", inPath, err)
	}
	for _, fit := range report.Fits {
		if fit.PValue < *minPValueFlag {
			log.Printf("fragment %s: picks deviate from weights (chi2=%.3g, p=%.3g, %d candidates)",
				fit.Name, fit.ChiSquare, fit.PValue, fit.Candidates)
		}
	}

	if err := writeTSV(*outPrefixFlag+".tsv", report); err != nil {
		log.Fatalf("write %v.tsv: %v", *outPrefixFlag, err)
	}
	title := fmt.Sprintf("Weights vs Counts after sampling %d times", report.Passes)
	for _, ext := range []string{".png", ".pdf"} {
		if err := writeScatter(*outPrefixFlag+ext, title, report.Points()); err != nil {
			log.Fatalf("write %v%v: %v", *outPrefixFlag, ext, err)
		}
	}
	log.Printf("wrote %s.{png,pdf,tsv}", *outPrefixFlag)
}
