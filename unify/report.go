package unify

import (
	"io"
	"strconv"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/tsv"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Entry is one row of the frequency table: how often one candidate was picked.
type Entry struct {
	Identity
	// Weight is the numeric value of Identity.Weight, or the selection weight
	// if that text is not a number.
	Weight float64
	// Count is the number of passes in which the candidate was picked.
	Count int
	// Expected is the probability of picking the candidate, after the zero
	// weight substitution and normalization.
	Expected float64
	// Observed is Count divided by the number of passes.
	Observed float64
}

// Point is one dot of the weight vs. count scatterplot.
type Point struct {
	Weight float64
	Count  int
}

// Fit is the chi-square goodness of fit of the observed picks of one
// multimapping fragment against its weights.
type Fit struct {
	Name       string
	Candidates int
	ChiSquare  float64
	// PValue is the probability of a chi-square statistic at least this large
	// if picks follow the weights.
	PValue float64
}

// Report is the outcome of Validate.
type Report struct {
	// Passes is the number of passes over the input.
	Passes int
	// Entries lists every candidate that was picked at least once, ordered
	// by weight, then by identity.
	Entries []Entry
	// Fits lists the multimapping fragments in input order.
	Fits []Fit
}

// entryKey orders entries in an llrb tree.
type entryKey struct {
	weight float64
	id     string
	entry  *Entry
}

// Compare implements llrb.Comparable.
func (k entryKey) Compare(c llrb.Comparable) int {
	k2 := c.(entryKey)
	switch {
	case k.weight < k2.weight:
		return -1
	case k.weight > k2.weight:
		return 1
	case k.id < k2.id:
		return -1
	case k.id > k2.id:
		return 1
	}
	return 0
}

// normalize returns weights scaled to sum to one, with zeros replaced by
// zeroWeight as Selector does.
func normalize(weights []float64, zeroWeight float64) []float64 {
	p := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w == 0 {
			w = zeroWeight
		}
		p[i] = w
		total += w
	}
	for i := range p {
		p[i] /= total
	}
	return p
}

// Report summarizes the tally. zeroWeight must be the value used during
// selection. Candidates with the same identity are counted as one entry,
// whichever fragment group they were picked from.
func (t *Tally) Report(zeroWeight float64) *Report {
	r := &Report{Passes: t.passes}
	byID := map[string]*Entry{}
	for _, ft := range t.frags {
		expected := normalize(ft.weights, zeroWeight)
		for i, c := range ft.candidates {
			key := c.id.String()
			e := byID[key]
			if e == nil {
				e = &Entry{Identity: c.id, Weight: c.weight}
				if v, err := strconv.ParseFloat(c.id.Weight, 64); err == nil {
					e.Weight = v
				}
				byID[key] = e
			}
			e.Count += c.count
			e.Expected += expected[i]
		}
		if len(ft.candidates) > 1 && t.passes > 0 {
			r.Fits = append(r.Fits, goodnessOfFit(ft, expected, t.passes))
		}
	}
	tree := llrb.Tree{}
	for key, e := range byID {
		if e.Count == 0 {
			continue
		}
		if t.passes > 0 {
			e.Observed = float64(e.Count) / float64(t.passes)
		}
		tree.Insert(entryKey{weight: e.Weight, id: key, entry: e})
	}
	tree.Do(func(c llrb.Comparable) bool {
		r.Entries = append(r.Entries, *c.(entryKey).entry)
		return false
	})
	return r
}

func goodnessOfFit(ft *fragmentTally, expected []float64, passes int) Fit {
	obs := make([]float64, len(ft.candidates))
	exp := make([]float64, len(ft.candidates))
	for i, c := range ft.candidates {
		obs[i] = float64(c.count)
		exp[i] = expected[i] * float64(passes)
	}
	x := stat.ChiSquare(obs, exp)
	dist := distuv.ChiSquared{K: float64(len(obs) - 1)}
	return Fit{
		Name:       ft.name,
		Candidates: len(obs),
		ChiSquare:  x,
		PValue:     dist.Survival(x),
	}
}

// Points returns the (weight, count) pairs of the report, ordered by weight.
// Weights are clamped to [0, 1].
func (r *Report) Points() []Point {
	pts := make([]Point, len(r.Entries))
	for i, e := range r.Entries {
		w := e.Weight
		if w < 0 {
			w = 0
		} else if w > 1 {
			w = 1
		}
		pts[i] = Point{Weight: w, Count: e.Count}
	}
	return pts
}

// WriteTSV writes the frequency table, one row per entry, with a header line.
func (r *Report) WriteTSV(w io.Writer) error {
	out := tsv.NewWriter(w)
	out.WriteString("NAME\tREF\tPOS\tWEIGHT\tCOUNT\tEXPECTED\tOBSERVED")
	if err := out.EndLine(); err != nil {
		return err
	}
	for _, e := range r.Entries {
		out.WriteString(e.Name)
		out.WriteString(e.RefName)
		out.WriteInt64(int64(e.Pos))
		out.WriteFloat64(e.Weight, 'g', -1)
		out.WriteInt64(int64(e.Count))
		out.WriteFloat64(e.Expected, 'g', 6)
		out.WriteFloat64(e.Observed, 'g', 6)
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
