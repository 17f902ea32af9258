package tui

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/ojspy/internal/logging"
)

// Reporter forwards run events to a running program.
type Reporter struct {
	program *tea.Program
	lines   *logging.LineWriter
	now     func() time.Time
}

// Progress sends a progress update.
func (r *Reporter) Progress(done, total int) {
	r.program.Send(ProgressMsg{Done: done, Total: total, At: r.now()})
}

// Status sends a status line update.
func (r *Reporter) Status(status string) {
	r.program.Send(StatusMsg(status))
}

// LogWriter returns a writer whose lines are printed above the progress bar.
func (r *Reporter) LogWriter() io.Writer {
	return r.lines
}

// Run starts the progress UI on out and runs job alongside it. cancel is
// invoked when the operator quits; Run still waits for job to return.
func Run(out io.Writer, cancel func(), job func(*Reporter) error) error {
	m := NewModel(cancel)
	program := tea.NewProgram(m, tea.WithOutput(out))
	rep := &Reporter{program: program, now: time.Now}
	rep.lines = logging.NewLineWriter(func(line string) {
		program.Send(LogMsg(line))
	})

	result := make(chan error, 1)
	go func() {
		err := job(rep)
		rep.lines.Flush()
		program.Send(DoneMsg{Err: err})
		result <- err
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-result
		return err
	}
	if !m.done {
		cancel()
	}
	return <-result
}

// PlainProgress logs progress lines for runs without a terminal UI. Lines
// are emitted at most once per interval, plus the final one.
func PlainProgress(log *zerolog.Logger, interval time.Duration, now func() time.Time) func(done, total int) {
	var startedAt, lastAt time.Time
	return func(done, total int) {
		at := now()
		if done == 0 {
			startedAt = at
			return
		}
		if done < total && at.Sub(lastAt) < interval {
			return
		}
		lastAt = at
		pct := 0.0
		if total > 0 {
			pct = float64(done) / float64(total) * 100
		}
		log.Info().
			Str("progress", fmt.Sprintf("%.1f%%", pct)).
			Str("eta", FormatETA(at.Sub(startedAt), done, total)).
			Int("done", done).
			Int("total", total).
			Msg("progress")
	}
}
