package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ojspy/internal/model"
)

func TestParseGroupKey(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantKey GroupKey
		wantOK  bool
	}{
		{name: "dash", input: "problem 3-1", wantKey: GroupKey{Major: "3", Minor: "1"}, wantOK: true},
		{name: "underscore with spaces", input: "lab 12 _ 2", wantKey: GroupKey{Major: "12", Minor: "2"}, wantOK: true},
		{name: "leading zeros on minor", input: "문제 4-02", wantKey: GroupKey{Major: "4", Minor: "2"}, wantOK: true},
		{name: "major zeros kept", input: "07-1", wantKey: GroupKey{Major: "07", Minor: "1"}, wantOK: true},
		{name: "all zero minor", input: "5-000", wantKey: GroupKey{Major: "5", Minor: "0"}, wantOK: true},
		{name: "no pattern", input: "warmup", wantOK: false},
		{name: "single number", input: "problem 3", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := ParseGroupKey(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantKey, key)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	assert.Equal(t, 0.0, Combine(0, 0))
	assert.Equal(t, 5.0, Combine(10, 3))
	assert.Equal(t, 10.0, Combine(4, 10))
	assert.Equal(t, 5.0, Combine(0, 5))
	assert.Equal(t, 50.0, Combine(100, 50))
	assert.Equal(t, 0.5, Combine(1, 0))
}

func TestAggregateFlat(t *testing.T) {
	scores := []model.ProblemScore{
		{Problem: "1-1", Score: 10},
		{Problem: "1-2", Score: 3},
		{Problem: "bonus", Score: 7},
	}
	assert.Equal(t, 20.0, Aggregate(scores, ModeFlat))
}

func TestAggregateGrouped(t *testing.T) {
	testCases := []struct {
		name   string
		scores []model.ProblemScore
		want   float64
	}{
		{
			name: "pair uses dominance rule",
			scores: []model.ProblemScore{
				{Problem: "문제 1-1", Score: 10},
				{Problem: "문제 1-2", Score: 3},
			},
			want: 5,
		},
		{
			name: "second part is a floor",
			scores: []model.ProblemScore{
				{Problem: "1-1", Score: 4},
				{Problem: "1-2", Score: 10},
			},
			want: 10,
		},
		{
			name: "single slot counts at face value",
			scores: []model.ProblemScore{
				{Problem: "2-1", Score: 80},
			},
			want: 80,
		},
		{
			name: "other minor numbers are individual",
			scores: []model.ProblemScore{
				{Problem: "3-1", Score: 10},
				{Problem: "3-2", Score: 2},
				{Problem: "3-3", Score: 7},
			},
			want: 12,
		},
		{
			name: "unmatched names are individual",
			scores: []model.ProblemScore{
				{Problem: "warmup", Score: 6},
				{Problem: "4_01", Score: 9},
				{Problem: "4_02", Score: 1},
			},
			want: 10.5,
		},
		{
			name: "last write wins for repeated slot",
			scores: []model.ProblemScore{
				{Problem: "5-1", Score: 100},
				{Problem: "5-01", Score: 20},
				{Problem: "5-2", Score: 0},
			},
			want: 10,
		},
		{
			name: "both zero",
			scores: []model.ProblemScore{
				{Problem: "6-1", Score: 0},
				{Problem: "6-2", Score: 0},
			},
			want: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Aggregate(tc.scores, ModeGrouped))
		})
	}
}

func TestAggregateModesAgreeWithoutGroups(t *testing.T) {
	scores := []model.ProblemScore{
		{Problem: "hello world", Score: 10},
		{Problem: "sorting", Score: 35},
		{Problem: "graphs", Score: 0},
		{Problem: "problem 9", Score: 12},
	}
	assert.Equal(t, Aggregate(scores, ModeFlat), Aggregate(scores, ModeGrouped))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("Grouped")
	require.NoError(t, err)
	assert.Equal(t, ModeGrouped, mode)

	mode, err = ParseMode("flat")
	require.NoError(t, err)
	assert.Equal(t, ModeFlat, mode)

	_, err = ParseMode("both")
	assert.Error(t, err)
}

func TestParseRatio(t *testing.T) {
	ratio, err := ParseRatio("0.2", "0.2", "0.2", "0.2", "0.2")
	require.NoError(t, err)
	assert.Equal(t, model.GradeRatio{A: 0.2, B: 0.2, C: 0.2, D: 0.2, F: 0.2}, ratio)

	_, err = ParseRatio("0.25", "0.25", "0.25", "0.25", "0.1")
	assert.ErrorContains(t, err, "sum to 1.0")

	_, err = ParseRatio("0.2", "abc", "0.2", "0.2", "0.2")
	assert.ErrorContains(t, err, "ratio B must be a number")

	_, err = ParseRatio("0.3", "0.3", "0.3", "0.3", "-0.2")
	assert.Error(t, err)

	_, err = ParseRatio("0.2", "0.2", "0.2", "0.2", "0.205")
	assert.NoError(t, err)
}

func TestRankIsStable(t *testing.T) {
	ranked := Rank([]model.StudentTotal{
		{Student: "a", Total: 10},
		{Student: "b", Total: 30},
		{Student: "c", Total: 10},
		{Student: "d", Total: 30},
	})
	got := make([]string, len(ranked))
	for i, r := range ranked {
		got[i] = r.Student
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
}

func TestAssignGradesWithoutRatio(t *testing.T) {
	entries := AssignGrades([]model.StudentTotal{
		{Student: "s1", Total: 90},
		{Student: "s2", Total: 0},
	}, nil)
	require.Len(t, entries, 2)
	assert.Equal(t, model.GradedEntry{Rank: 1, Student: "s1", Total: 90, Grade: ""}, entries[0])
	assert.Equal(t, model.GradedEntry{Rank: 2, Student: "s2", Total: 0, Grade: "F"}, entries[1])
}

func TestAssignGradesWithRatio(t *testing.T) {
	ranked := make([]model.StudentTotal, 10)
	for i := range ranked {
		ranked[i] = model.StudentTotal{Student: fmt.Sprintf("s%02d", i+1), Total: float64(100 - i)}
	}
	ratio := &model.GradeRatio{A: 0.2, B: 0.2, C: 0.2, D: 0.2, F: 0.2}

	entries := AssignGrades(ranked, ratio)
	got := make([]string, len(entries))
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
		got[i] = e.Grade
	}
	assert.Equal(t, []string{"A+", "A0", "B+", "B0", "C+", "C0", "D+", "D0", "F", "F"}, got)
}

func TestAssignGradesWiderBands(t *testing.T) {
	ranked := make([]model.StudentTotal, 7)
	for i := range ranked {
		ranked[i] = model.StudentTotal{Student: fmt.Sprintf("s%d", i+1), Total: float64(70 - i)}
	}
	// cutA=3 (floor 3.5), cutB=5, cutC=6, cutD=6.
	ratio := &model.GradeRatio{A: 0.5, B: 0.3, C: 0.2, D: 0, F: 0}

	entries := AssignGrades(ranked, ratio)
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Grade
	}
	assert.Equal(t, []string{"A+", "A+", "A0", "B+", "B0", "C+", "F"}, got)
}

func TestAssignGradesZeroOverridesBand(t *testing.T) {
	ranked := []model.StudentTotal{
		{Student: "s1", Total: 50},
		{Student: "s2", Total: 0},
	}
	ratio := &model.GradeRatio{A: 0.5, B: 0.5}
	entries := AssignGrades(ranked, ratio)
	assert.Equal(t, "A+", entries[0].Grade)
	assert.Equal(t, "F", entries[1].Grade)
}

func TestAssignGradesEmptyCohort(t *testing.T) {
	entries := AssignGrades(nil, &model.GradeRatio{A: 1})
	assert.Empty(t, entries)
}
