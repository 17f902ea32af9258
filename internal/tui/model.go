// Package tui provides the Bubble Tea progress interface for a scoring run.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressMsg reports finished fetches out of the total.
type ProgressMsg struct {
	Done  int
	Total int
	At    time.Time
}

// StatusMsg replaces the status line shown next to the spinner.
type StatusMsg string

// LogMsg is printed above the progress bar.
type LogMsg string

// DoneMsg ends the UI once the run has returned.
type DoneMsg struct {
	Err error
}

const maxBarWidth = 48

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// Model implements the Bubble Tea progress UI.
type Model struct {
	cancel func()

	spinner spinner.Model
	bar     progress.Model
	width   int

	status     string
	cancelling bool
	done       bool
	err        error

	fetched   int
	total     int
	startedAt time.Time
	lastAt    time.Time
}

// NewModel constructs the progress model. cancel is called once when the
// operator asks to stop.
func NewModel(cancel func()) *Model {
	return &Model{
		cancel:  cancel,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusStyle)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(maxBarWidth)),
		status:  "connecting",
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = barWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC, msg.Type == tea.KeyRunes && string(msg.Runes) == "q":
			if m.cancelling {
				return m, tea.Quit
			}
			m.cancelling = true
			m.status = "cancelling"
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		default:
			return m, nil
		}
	case ProgressMsg:
		if msg.Done == 0 || m.startedAt.IsZero() {
			m.startedAt = msg.At
		}
		m.fetched = msg.Done
		m.total = msg.Total
		m.lastAt = msg.At
		if !m.cancelling {
			m.status = "scoring"
		}
		return m, nil
	case StatusMsg:
		if !m.cancelling {
			m.status = string(msg)
		}
		return m, nil
	case LogMsg:
		return m, tea.Println(string(msg))
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.done {
		if m.err != nil {
			return errorStyle.Render("stopped: "+m.err.Error()) + "\n"
		}
		return ""
	}
	head := m.spinner.View() + " " + statusStyle.Render(m.status)
	if m.total == 0 {
		return head + "\n"
	}
	return head + "\n" + m.bar.ViewAs(m.percent()) + " " + m.renderFooter() + "\n"
}

func (m *Model) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.fetched) / float64(m.total)
}

func (m *Model) renderFooter() string {
	segments := []string{
		fmt.Sprintf("%.1f%%", m.percent()*100),
		"ETA " + FormatETA(m.lastAt.Sub(m.startedAt), m.fetched, m.total),
		fmt.Sprintf("%d/%d", m.fetched, m.total),
	}
	if m.cancelling {
		segments = append(segments, "stopping after current request")
	} else {
		segments = append(segments, "q to cancel")
	}
	return footerStyle.Render(strings.Join(segments, " | "))
}

func barWidth(termWidth int) int {
	w := termWidth - 48
	if w > maxBarWidth {
		w = maxBarWidth
	}
	if w < 10 {
		w = 10
	}
	return w
}

// FormatETA estimates the remaining time as h:mm:ss from the average time
// per finished fetch.
func FormatETA(elapsed time.Duration, done, total int) string {
	if done <= 0 || total <= done {
		if total > 0 && done >= total {
			return "0:00:00"
		}
		return "-:--:--"
	}
	remaining := elapsed / time.Duration(done) * time.Duration(total-done)
	secs := int(remaining.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
