package scoring

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/ojspy/internal/model"
)

// Mode selects how problem scores are combined into a total.
type Mode int

const (
	// ModeFlat sums every problem score.
	ModeFlat Mode = iota
	// ModeGrouped applies the sub-problem dominance rule to "N-1"/"N-2" pairs.
	ModeGrouped
)

func (m Mode) String() string {
	switch m {
	case ModeFlat:
		return "flat"
	case ModeGrouped:
		return "grouped"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "flat" or "grouped".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat":
		return ModeFlat, nil
	case "grouped":
		return ModeGrouped, nil
	default:
		return 0, fmt.Errorf("unknown aggregation mode %q (want flat or grouped)", s)
	}
}

type groupSlots struct {
	first, second       int
	hasFirst, hasSecond bool
}

// Aggregate combines one student's problem scores into a total.
func Aggregate(scores []model.ProblemScore, mode Mode) float64 {
	if mode == ModeFlat {
		total := 0.0
		for _, s := range scores {
			total += float64(s.Score)
		}
		return total
	}

	individual := 0.0
	order := []string{}
	groups := map[string]*groupSlots{}
	for _, s := range scores {
		key, ok := ParseGroupKey(s.Problem)
		slot := key.Slot()
		if !ok || slot == 0 {
			individual += float64(s.Score)
			continue
		}
		g, exists := groups[key.Major]
		if !exists {
			g = &groupSlots{}
			groups[key.Major] = g
			order = append(order, key.Major)
		}
		if slot == 1 {
			g.first, g.hasFirst = s.Score, true
		} else {
			g.second, g.hasSecond = s.Score, true
		}
	}

	total := individual
	for _, major := range order {
		g := groups[major]
		switch {
		case g.hasFirst && g.hasSecond:
			total += Combine(float64(g.first), float64(g.second))
		case g.hasFirst:
			total += float64(g.first)
		case g.hasSecond:
			total += float64(g.second)
		}
	}
	return total
}
