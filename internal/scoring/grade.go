package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/verte-zerg/ojspy/internal/model"
)

// RatioTolerance is how far the ratio sum may drift from 1.0.
const RatioTolerance = 0.01

// GradeF is given to zero scorers and to everyone below the D band.
const GradeF = "F"

// ParseRatio parses the five ratio fields and validates them.
func ParseRatio(a, b, c, d, f string) (model.GradeRatio, error) {
	fields := []struct {
		name  string
		value string
	}{{"A", a}, {"B", b}, {"C", c}, {"D", d}, {"F", f}}
	values := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field.value), 64)
		if err != nil {
			return model.GradeRatio{}, fmt.Errorf("ratio %s must be a number, got %q", field.name, field.value)
		}
		values[i] = v
	}
	ratio := model.GradeRatio{A: values[0], B: values[1], C: values[2], D: values[3], F: values[4]}
	if err := ValidateRatio(ratio); err != nil {
		return model.GradeRatio{}, err
	}
	return ratio, nil
}

// ValidateRatio checks that ratios are non-negative and sum to 1.0.
func ValidateRatio(r model.GradeRatio) error {
	for _, v := range []float64{r.A, r.B, r.C, r.D, r.F} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("ratios must be finite and >= 0")
		}
	}
	sum := r.A + r.B + r.C + r.D + r.F
	if math.Abs(sum-1.0) > RatioTolerance {
		return fmt.Errorf("ratios must sum to 1.0, got %.2f", sum)
	}
	return nil
}

// Rank orders totals by score descending, keeping input order for ties.
func Rank(totals []model.StudentTotal) []model.StudentTotal {
	ranked := make([]model.StudentTotal, len(totals))
	copy(ranked, totals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})
	return ranked
}

type band struct {
	grade      string
	start, end int
}

// AssignGrades grades a ranked cohort. With a nil ratio only zero scorers
// are graded ("F") and everyone else is left blank.
func AssignGrades(ranked []model.StudentTotal, ratio *model.GradeRatio) []model.GradedEntry {
	entries := make([]model.GradedEntry, len(ranked))
	var bands []band
	if ratio != nil {
		bands = cutoffBands(len(ranked), *ratio)
	}
	for i, st := range ranked {
		rank := i + 1
		grade := ""
		switch {
		case st.Total == 0:
			grade = GradeF
		case ratio != nil:
			grade = gradeForRank(rank, bands)
		}
		entries[i] = model.GradedEntry{
			Rank:    rank,
			Student: st.Student,
			Total:   st.Total,
			Grade:   grade,
		}
	}
	return entries
}

func cutoffBands(n int, r model.GradeRatio) []band {
	bands := make([]band, 0, 4)
	end := 0
	for _, g := range []struct {
		grade string
		share float64
	}{{"A", r.A}, {"B", r.B}, {"C", r.C}, {"D", r.D}} {
		start := end + 1
		end += int(math.Floor(float64(n) * g.share))
		bands = append(bands, band{grade: g.grade, start: start, end: end})
	}
	return bands
}

func gradeForRank(rank int, bands []band) string {
	for _, b := range bands {
		if rank > b.end {
			continue
		}
		mid := float64(b.start+b.end) / 2
		if float64(rank) <= mid {
			return b.grade + "+"
		}
		return b.grade + "0"
	}
	return GradeF
}
