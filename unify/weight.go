package unify

import (
	"github.com/grailbio/csem/encoding/bamstream"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// DefaultWeightTag is the aux tag prefix under which CSEM stores the
// posterior probability of an alignment.
const DefaultWeightTag = "ZW"

var (
	// ErrMissingWeightTag is returned when a record has no posterior
	// probability tag. It aborts the whole run.
	ErrMissingWeightTag = errors.New("posterior probability tag not found in the metadata of the read")

	// ErrMalformedGroup is returned when the records of a fragment cannot be
	// split into pairs, or its candidate and weight lists disagree.
	ErrMalformedGroup = errors.New("malformed fragment")

	// ErrInvalidWeight is returned when a weight is negative or not finite.
	ErrInvalidWeight = errors.New("invalid weight")
)

// Weight returns the posterior probability stored in r under the given tag
// prefix.
func Weight(r *sam.Record, tag string) (float64, error) {
	w, ok, err := bamstream.FloatTag(r, tag)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", r.Name)
	}
	if !ok {
		return 0, errors.Wrapf(ErrMissingWeightTag, "read %s: no %q tag", r.Name, tag)
	}
	return w, nil
}
