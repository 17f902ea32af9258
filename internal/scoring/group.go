// Package scoring aggregates problem scores and assigns letter grades.
package scoring

import (
	"regexp"
	"strings"
)

var groupPattern = regexp.MustCompile(`(\d+)\s*[-_]\s*(\d+)`)

// GroupKey identifies a sub-problem slot such as "3-1".
type GroupKey struct {
	Major string
	Minor string
}

// ParseGroupKey extracts a major-minor pair from a problem name. Leading
// zeros are stripped from the minor number only.
func ParseGroupKey(name string) (GroupKey, bool) {
	m := groupPattern.FindStringSubmatch(name)
	if m == nil {
		return GroupKey{}, false
	}
	minor := strings.TrimLeft(m[2], "0")
	if minor == "" {
		minor = "0"
	}
	return GroupKey{Major: m[1], Minor: minor}, true
}

// Slot returns 1 or 2 for the recognized sub-problem slots and 0 otherwise.
func (k GroupKey) Slot() int {
	switch k.Minor {
	case "1":
		return 1
	case "2":
		return 2
	default:
		return 0
	}
}

// Combine scores a two-part group: the first part is worth at most half
// credit, and the second part's own score is a floor.
func Combine(first, second float64) float64 {
	if first == 0 && second == 0 {
		return 0
	}
	half := first * 0.5
	if half >= second {
		return half
	}
	return second
}
