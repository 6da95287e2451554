package bamstream

import (
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// FloatTag returns the numeric value of the last aux field of r whose tag
// starts with prefix. Fields are scanned from the end of the record, where
// producers conventionally append their own tags. ok is false if no field
// matches; err is non-nil if the matching field is not numeric.
func FloatTag(r *sam.Record, prefix string) (v float64, ok bool, err error) {
	for i := len(r.AuxFields) - 1; i >= 0; i-- {
		aux := r.AuxFields[i]
		if !tagHasPrefix(aux.Tag(), prefix) {
			continue
		}
		v, err = AuxFloat(aux)
		return v, true, err
	}
	return 0, false, nil
}

func tagHasPrefix(tag sam.Tag, prefix string) bool {
	if len(prefix) > len(tag) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if tag[i] != prefix[i] {
			return false
		}
	}
	return true
}

// AuxFloat converts the value of a numeric aux field to float64. String
// values ('Z' and 'A') are parsed. An aux field is laid out as the two tag
// bytes, the type byte, then the value.
func AuxFloat(aux sam.Aux) (float64, error) {
	if aux.Type() == 'A' {
		return parseAuxFloat(aux, string(aux[3:4]))
	}
	switch v := aux.Value().(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int8:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case string:
		return parseAuxFloat(aux, v)
	}
	return 0, errors.Errorf("aux field %v: value %v is not a number", aux.Tag(), aux.Value())
}

func parseAuxFloat(aux sam.Aux, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "aux field %v", aux.Tag())
	}
	return v, nil
}

// AuxText renders the value of aux as SAM text would show it. Float fields
// use the shortest representation that round-trips through float32.
func AuxText(aux sam.Aux) string {
	if aux.Type() == 'A' {
		return string(aux[3:4])
	}
	switch v := aux.Value().(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case string:
		return v
	}
	s := aux.String()
	// Aux.String yields "TG:T:value".
	if len(s) > 5 {
		return s[5:]
	}
	return s
}
