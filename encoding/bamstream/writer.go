package bamstream

import (
	"context"

	gerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// WriteOpts defines options for Create.
type WriteOpts struct {
	// CompressionLevel is the gzip level of each BGZF block.
	// gzip.DefaultCompression if zero.
	CompressionLevel int
	// Parallelism is the number of concurrent block compressors. 1 if <= 0.
	Parallelism int
}

// Writer writes records to a BAM file, in the order they are given. Thread
// compatible.
type Writer struct {
	ctx  context.Context
	path string
	out  file.File
	bw   *bam.Writer
	n    int
}

// Create creates a BAM file at path with the given header. The header is
// typically the one of the Source the records come from, so that reference
// IDs remain valid.
func Create(ctx context.Context, path string, header *sam.Header, opts WriteOpts) (*Writer, error) {
	if opts.CompressionLevel == 0 {
		opts.CompressionLevel = gzip.DefaultCompression
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %v", path)
	}
	bw, err := bam.NewWriterLevel(out.Writer(ctx), header, opts.CompressionLevel, opts.Parallelism)
	if err != nil {
		_ = out.Close(ctx)
		return nil, errors.Wrapf(err, "create %v: failed to write header", path)
	}
	return &Writer{ctx: ctx, path: path, out: out, bw: bw}, nil
}

// Write appends r to the file.
func (w *Writer) Write(r *sam.Record) error {
	if err := w.bw.Write(r); err != nil {
		return errors.Wrapf(err, "%v: failed to write %dth record %s", w.path, w.n, r.Name)
	}
	w.n++
	return nil
}

// NumRecords returns the number of records written so far.
func (w *Writer) NumRecords() int { return w.n }

// Close flushes the BAM stream and closes the file. It must be called exactly
// once, including after a failed Write.
func (w *Writer) Close() error {
	e := gerrors.Once{}
	e.Set(w.bw.Close())
	e.Set(w.out.Close(w.ctx))
	if err := e.Err(); err != nil {
		return errors.Wrapf(err, "close %v", w.path)
	}
	return nil
}
