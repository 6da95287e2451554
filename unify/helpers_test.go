package unify_test

import (
	"fmt"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func newHeader(t *testing.T) *sam.Header {
	chr1, err := sam.NewReference("chr1", "", "", 100000, nil, nil)
	require.NoError(t, err)
	chr2, err := sam.NewReference("chr2", "", "", 100000, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
	require.NoError(t, err)
	return header
}

func newAux(name string, val interface{}) sam.Aux {
	aux, err := sam.NewAux(sam.NewTag(name), val)
	if err != nil {
		panic(fmt.Sprintf("error creating %s %v tag: %v", name, val, err))
	}
	return aux
}

// newRecord creates a record with an NH tag followed by a ZW tag holding
// weight.
func newRecord(name string, ref *sam.Reference, pos int, flags sam.Flags, weight float32) *sam.Record {
	r, err := sam.NewRecord(name, ref, ref, pos, pos+200, 300, 60,
		[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 4)},
		[]byte("ACGT"), []byte{30, 31, 32, 33},
		[]sam.Aux{newAux("NH", 1), newAux("ZW", weight)})
	if err != nil {
		panic(err)
	}
	r.Flags = flags
	return r
}

// newPair creates the two records of one candidate alignment at pos.
func newPair(name string, ref *sam.Reference, pos int, weight float32) []*sam.Record {
	return []*sam.Record{
		newRecord(name, ref, pos, sam.Paired|sam.Read1, weight),
		newRecord(name, ref, pos+200, sam.Paired|sam.Read2, weight),
	}
}

// fragment creates the records of a fragment with one candidate per weight.
// Candidate i is aligned at 1000*(i+1).
func fragment(name string, ref *sam.Reference, weights ...float32) []*sam.Record {
	var recs []*sam.Record
	for i, w := range weights {
		recs = append(recs, newPair(name, ref, 1000*(i+1), w)...)
	}
	return recs
}

func concat(frags ...[]*sam.Record) []*sam.Record {
	var recs []*sam.Record
	for _, f := range frags {
		recs = append(recs, f...)
	}
	return recs
}

// countingSource counts the values drawn from it.
type countingSource struct {
	src   rand.Source
	draws int
}

func newCountingSource(seed uint64) *countingSource {
	return &countingSource{src: rand.NewSource(seed)}
}

func (s *countingSource) Uint64() uint64 {
	s.draws++
	return s.src.Uint64()
}

func (s *countingSource) Seed(seed uint64) { s.src.Seed(seed) }
