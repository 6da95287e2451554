package bamstream_test

import (
	"testing"

	"github.com/grailbio/csem/encoding/bamstream"
	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAux(t *testing.T, tag string, val interface{}) sam.Aux {
	aux, err := sam.NewAux(sam.NewTag(tag), val)
	require.NoError(t, err)
	return aux
}

func TestFloatTag(t *testing.T) {
	r := &sam.Record{Name: "r0"}
	_, ok, err := bamstream.FloatTag(r, "ZW")
	assert.False(t, ok)
	assert.NoError(t, err)

	r.AuxFields = sam.AuxFields{
		newAux(t, "NH", 2),
		newAux(t, "ZA", float32(0.25)),
		newAux(t, "ZW", float32(0.5)),
		newAux(t, "XS", "text"),
	}
	v, ok, err := bamstream.FloatTag(r, "ZW")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	// The prefix "Z" matches both ZA and ZW; the last one wins.
	v, ok, err = bamstream.FloatTag(r, "Z")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	v, ok, err = bamstream.FloatTag(r, "NH")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok, err = bamstream.FloatTag(r, "XS")
	assert.True(t, ok)
	assert.Error(t, err)

	_, ok, err = bamstream.FloatTag(r, "YY")
	assert.False(t, ok)
	assert.NoError(t, err)

	_, ok, _ = bamstream.FloatTag(r, "ZWX")
	assert.False(t, ok)
}

func TestAuxFloat(t *testing.T) {
	for _, test := range []struct {
		val  interface{}
		want float64
	}{
		{float32(0), 0},
		{float32(1), 1},
		{int8(-3), -3},
		{uint16(300), 300},
		{int32(-70000), -70000},
		{"0.125", 0.125},
		{" 1e-3 ", 0.001},
	} {
		v, err := bamstream.AuxFloat(newAux(t, "ZW", test.val))
		require.NoError(t, err, "%v", test.val)
		assert.Equal(t, test.want, v, "%v", test.val)
	}
	_, err := bamstream.AuxFloat(newAux(t, "ZW", "high"))
	assert.Error(t, err)
}

func TestAuxText(t *testing.T) {
	assert.Equal(t, "0.7", bamstream.AuxText(newAux(t, "ZW", float32(0.7))))
	assert.Equal(t, "1", bamstream.AuxText(newAux(t, "ZW", float32(1))))
	assert.Equal(t, "abc", bamstream.AuxText(newAux(t, "XS", "abc")))
}
