// Package model defines shared data structures.
package model

import (
	"net/url"
	"time"
)

// StudentQueryKey is the status URL query parameter carrying the student id.
const StudentQueryKey = "uid"

// ProblemDescriptor names one scoreable problem and the status page of a
// representative student for it.
type ProblemDescriptor struct {
	Name              string
	StatusURLTemplate string
}

// ForStudent returns the status URL of this problem for the given student.
func (p ProblemDescriptor) ForStudent(student string) (string, error) {
	u, err := url.Parse(p.StatusURLTemplate)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(StudentQueryKey, student)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ProblemScore is the best score a student achieved on a problem.
type ProblemScore struct {
	Problem string
	Score   int
}

// StudentTotal is the aggregated score of one student.
type StudentTotal struct {
	Student string
	Total   float64
}

// GradeRatio holds the share of the cohort given each letter grade.
type GradeRatio struct {
	A float64
	B float64
	C float64
	D float64
	F float64
}

// GradedEntry is one row of the final ranking table.
type GradedEntry struct {
	Rank    int     `csv:"순위"`
	Student string  `csv:"학번"`
	Total   float64 `csv:"총점"`
	Grade   string  `csv:"등급"`
}

// RunConfig collects the operator inputs for a scoring run.
type RunConfig struct {
	LoginID    string      `validate:"required"`
	Password   string      `validate:"required"`
	ListingURL string      `validate:"required,url"`
	Students   []string    `validate:"required,min=1,dive,required"`
	SavePath   string      `validate:"omitempty,endswith=.xlsx|endswith=.csv"`
	Mode       string      `validate:"required,oneof=flat grouped"`
	FetchMode  string      `validate:"required,oneof=paged table"`
	MaxPages   int         `validate:"gte=1"`
	Ratio      *GradeRatio
}

// Run statuses kept in history.
const (
	RunCompleted  = "completed"
	RunCancelled  = "cancelled"
	RunSaveFailed = "save-failed"
)

// RunRecord summarizes a finished scoring run kept in history.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time
	ListingURL   string
	Mode         string
	ProblemCount int
	StudentCount int
	SavePath     string
	Status       string
}
