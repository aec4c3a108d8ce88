package mdtable

import (
	"strconv"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

// DefaultRadiusTolerance absorbs the model's rounding when enforcing the
// requested radius.
const DefaultRadiusTolerance = 1.05

// DistanceKm converts a free-text distance cell to kilometers: "350 m" is
// 0.35, "1.2 km" is 1.2, and a bare number is treated as already being in
// kilometers. ok is false when no number can be extracted.
func DistanceKm(s string) (km float64, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))

	meters := false
	switch {
	case strings.HasSuffix(s, "km"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "km"))
	case strings.HasSuffix(s, "m"):
		meters = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "m"))
	}

	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if meters {
		v /= 1000
	}
	return v, true
}

// FilterByRadius drops leads whose converted distance exceeds
// radiusKm*tolerance. The model's own radius adherence is unreliable, so
// this is the code-level backstop. Leads whose distance cannot be parsed
// are kept: the filter only rejects rows it can positively measure.
func FilterByRadius(leads []model.Lead, radiusKm, tolerance float64) []model.Lead {
	if radiusKm <= 0 {
		return leads
	}
	if tolerance <= 0 {
		tolerance = DefaultRadiusTolerance
	}
	limit := radiusKm * tolerance

	kept := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		if km, ok := DistanceKm(l.Distance); ok && km > limit {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}
