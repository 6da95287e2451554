package bamstream

import "github.com/grailbio/hts/sam"

// fakeSource is only for unittests. It yields the given records.
type fakeSource struct {
	header *sam.Header
	recs   []*sam.Record
	rec    *sam.Record
	closed bool
}

// NewFakeSource creates a Source that returns header from Header() and recs,
// in order, from Scan/Record. Each call yields a copy so that the code under
// test cannot alter the original test input data.
func NewFakeSource(header *sam.Header, recs []*sam.Record) Source {
	return &fakeSource{header: header, recs: recs}
}

// Header implements Source.
func (s *fakeSource) Header() *sam.Header { return s.header }

// Scan implements Source.
func (s *fakeSource) Scan() bool {
	if s.closed || len(s.recs) == 0 {
		s.rec = nil
		return false
	}
	r := *s.recs[0]
	s.rec = &r
	s.recs = s.recs[1:]
	return true
}

// Record implements Source.
func (s *fakeSource) Record() *sam.Record { return s.rec }

// Err implements Source.
func (s *fakeSource) Err() error { return nil }

// Close implements Source.
func (s *fakeSource) Close() error {
	if s.closed {
		panic("fakeSource closed twice")
	}
	s.closed = true
	return nil
}
