package bamstream

import (
	"context"
	"io"
	"os"
	"strings"

	gerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// ErrUnavailableFormat is returned by Open when the input is in a format
// this binary cannot decode. It is detected from the path alone, before the
// file is opened.
var ErrUnavailableFormat = errors.New("alignment format not supported")

// Source yields the records of one file in file order. Thread compatible.
type Source interface {
	// Header returns the header of the file. The caller must not modify it.
	Header() *sam.Header

	// Scan advances to the next record. It returns false at the end of the
	// file or on error; Err distinguishes the two.
	Scan() bool

	// Record returns the current record. It must be called only after Scan
	// returns true. The record is owned by the caller.
	Record() *sam.Record

	// Err returns the error encountered during iteration, or nil. io.EOF is
	// translated to nil.
	Err() error

	// Close must be called exactly once, on every path. It returns the value
	// of Err() if non-nil, else any error from releasing the file.
	Close() error
}

// FileType represents the type of an alignment file.
type FileType int

const (
	// Unknown is a sentinel.
	Unknown FileType = iota
	// BAM file
	BAM
	// SAM file
	SAM
	// PAM file. Recognized so that it can be rejected up front.
	PAM
)

func (t FileType) String() string {
	switch t {
	case BAM:
		return "bam"
	case SAM:
		return "sam"
	case PAM:
		return "pam"
	}
	return "unknown"
}

// ParseFileType parses the file type string. "bam" returns BAM, for example.
// On error, it returns Unknown.
func ParseFileType(name string) FileType {
	switch strings.ToLower(name) {
	case "bam":
		return BAM
	case "sam":
		return SAM
	case "pam":
		return PAM
	default:
		return Unknown
	}
}

// GuessFileType returns the file type from the pathname. Returns Unknown if
// the path gives no hint.
func GuessFileType(path string) FileType {
	switch {
	case strings.HasSuffix(path, ".bam"):
		return BAM
	case strings.HasSuffix(path, ".sam"):
		return SAM
	case strings.Contains(path, ".pam"):
		return PAM
	}
	vlog.VI(1).Infof("%v: could not detect file type.", path)
	return Unknown
}

// OpenOpts defines options for Open.
type OpenOpts struct {
	// Format overrides the type guessed from the path. Unknown inputs are
	// read as BAM.
	Format FileType

	// Parallelism is the number of BGZF decompressors used for BAM input.
	// Values <= 0 mean 1.
	Parallelism int
}

// recordReader is implemented by both hts sam.Reader and hts bam.Reader.
type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

type fileSource struct {
	ctx    context.Context
	path   string
	in     file.File // nil when reading stdin.
	bamIn  *bam.Reader
	reader recordReader

	rec  *sam.Record
	nRec int
	err  error
	done bool
}

// Open creates a Source for path. Path "-" reads stdin. The file type is
// taken from opts, else guessed from the path.
func Open(ctx context.Context, path string, opts ...OpenOpts) (Source, error) {
	var o OpenOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	format := o.Format
	if format == Unknown {
		format = GuessFileType(path)
	}
	switch format {
	case Unknown:
		format = BAM
	case PAM:
		return nil, errors.Wrapf(ErrUnavailableFormat,
			"%s: PAM input cannot be streamed in name order; convert it to BAM first", path)
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 1
	}

	s := &fileSource{ctx: ctx, path: path}
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := file.Open(ctx, path)
		if err != nil {
			return nil, errors.Wrapf(err, "open %v", path)
		}
		s.in = f
		in = f.Reader(ctx)
	}

	var err error
	if format == SAM {
		s.reader, err = sam.NewReader(in)
	} else {
		s.bamIn, err = bam.NewReader(in, o.Parallelism)
		s.reader = s.bamIn
	}
	if err != nil {
		err = errors.Wrapf(err, "open %v: failed to read %v header", path, format)
		if s.in != nil {
			_ = s.in.Close(ctx)
		}
		return nil, err
	}
	return s, nil
}

// Header implements Source.
func (s *fileSource) Header() *sam.Header {
	return s.reader.Header()
}

// Scan implements Source.
func (s *fileSource) Scan() bool {
	if s.done {
		return false
	}
	rec, err := s.reader.Read()
	if err != nil {
		s.done = true
		s.rec = nil
		if err != io.EOF {
			s.err = errors.Wrapf(err, "%v: failed to read %dth record", s.path, s.nRec)
		}
		return false
	}
	s.rec = rec
	s.nRec++
	return true
}

// Record implements Source.
func (s *fileSource) Record() *sam.Record {
	return s.rec
}

// Err implements Source.
func (s *fileSource) Err() error {
	return s.err
}

// Close implements Source.
func (s *fileSource) Close() error {
	e := gerrors.Once{}
	e.Set(s.err)
	if s.bamIn != nil {
		e.Set(s.bamIn.Close())
	}
	if s.in != nil {
		e.Set(s.in.Close(s.ctx))
	}
	return e.Err()
}
