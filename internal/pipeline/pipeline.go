package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/verte-zerg/ojspy/internal/judge"
	"github.com/verte-zerg/ojspy/internal/model"
	"github.com/verte-zerg/ojspy/internal/scoring"
)

// ErrCancelled is returned when the run stops on request.
var ErrCancelled = errors.New("run cancelled")

// Session is the authenticated judge client used by a run.
type Session interface {
	judge.PageGetter
	Login(ctx context.Context, id, password string) error
}

// ScoreSource returns a student's best score behind a status URL.
type ScoreSource interface {
	MaxScore(ctx context.Context, statusURL string) (int, error)
}

// Report is the outcome of a scoring run.
type Report struct {
	Problems []model.ProblemDescriptor
	Totals   []model.StudentTotal
	Entries  []model.GradedEntry
}

// Prepare logs in and reads the problem catalog from the listing page.
func Prepare(rc *RunContext, sess Session, cfg model.RunConfig) ([]model.ProblemDescriptor, error) {
	log := rc.Logger()
	ctx := rc.Context()

	log.Info().Str("user", cfg.LoginID).Msg("logging in")
	if err := sess.Login(ctx, cfg.LoginID, cfg.Password); err != nil {
		return nil, err
	}
	log.Info().Msg("login succeeded")

	pageURL, err := url.Parse(cfg.ListingURL)
	if err != nil {
		return nil, &judge.CatalogParseError{URL: cfg.ListingURL, Err: err}
	}
	body, err := sess.Get(ctx, cfg.ListingURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, &judge.CatalogParseError{URL: cfg.ListingURL, Err: err}
	}
	problems, err := judge.ExtractCatalog(bytes.NewReader(body), pageURL, cfg.Students[0])
	if err != nil {
		return nil, &judge.CatalogParseError{URL: cfg.ListingURL, Err: err}
	}
	log.Info().Int("problems", len(problems)).Msg("problem list loaded")
	return problems, nil
}

// CollectTotals scores every student in order, one request at a time. On
// cancellation it returns the totals of the students finished so far; the
// interrupted student's partial scores are dropped. The first fetch error
// aborts the whole run.
func CollectTotals(rc *RunContext, src ScoreSource, problems []model.ProblemDescriptor, students []string, mode scoring.Mode) ([]model.StudentTotal, error) {
	log := rc.Logger()
	total := len(students) * len(problems)
	done := 0
	totals := make([]model.StudentTotal, 0, len(students))
	rc.ReportProgress(0, total)

	for _, student := range students {
		if rc.IsCancelled() {
			log.Warn().Int("completed", len(totals)).Msg("cancelled")
			return totals, ErrCancelled
		}
		log.Info().Str("student", student).Msg("scoring student")

		scores := make([]model.ProblemScore, 0, len(problems))
		for _, p := range problems {
			if rc.IsCancelled() {
				log.Warn().Str("student", student).Int("completed", len(totals)).Msg("cancelled")
				return totals, ErrCancelled
			}
			statusURL, err := p.ForStudent(student)
			if err != nil {
				return totals, &judge.FetchError{URL: p.StatusURLTemplate, Err: err}
			}
			score, err := src.MaxScore(rc.Context(), statusURL)
			if err != nil {
				if rc.IsCancelled() {
					return totals, ErrCancelled
				}
				return totals, fmt.Errorf("student %s, problem %q: %w", student, p.Name, err)
			}
			done++
			rc.ReportProgress(done, total)
			log.Info().Str("student", student).Str("problem", p.Name).Int("score", score).Msg("score")
			scores = append(scores, model.ProblemScore{Problem: p.Name, Score: score})
		}

		sum := scoring.Aggregate(scores, mode)
		log.Info().Str("student", student).Float64("total", sum).Msg("total")
		totals = append(totals, model.StudentTotal{Student: student, Total: sum})
	}
	return totals, nil
}

// Grade ranks totals and assigns grades.
func Grade(totals []model.StudentTotal, ratio *model.GradeRatio) []model.GradedEntry {
	return scoring.AssignGrades(scoring.Rank(totals), ratio)
}

// Execute runs the whole pipeline for a validated config.
func Execute(rc *RunContext, sess Session, cfg model.RunConfig) (Report, error) {
	mode, err := scoring.ParseMode(cfg.Mode)
	if err != nil {
		return Report{}, err
	}
	fetchMode, err := judge.ParseFetchMode(cfg.FetchMode)
	if err != nil {
		return Report{}, err
	}

	problems, err := Prepare(rc, sess, cfg)
	if err != nil {
		return Report{}, err
	}
	report := Report{Problems: problems}

	fetcher := judge.NewFetcher(sess, fetchMode, cfg.MaxPages)
	totals, err := CollectTotals(rc, fetcher, problems, cfg.Students, mode)
	report.Totals = totals
	if err != nil {
		return report, err
	}
	report.Entries = Grade(totals, cfg.Ratio)
	return report, nil
}
