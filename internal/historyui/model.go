// Package historyui provides the Bubble Tea browser for past scoring runs.
package historyui

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/ojspy/internal/export"
	"github.com/verte-zerg/ojspy/internal/model"
)

// Source is the subset of the history store the browser reads.
type Source interface {
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	GetRunEntries(ctx context.Context, runID string) ([]model.GradedEntry, error)
	GradeCounts(ctx context.Context, runID string) (map[string]int, error)
}

const (
	viewRuns = iota
	viewDetail
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Model implements the Bubble Tea history UI.
type Model struct {
	source Source
	limit  int

	runs     []model.RunRecord
	visible  []model.RunRecord
	selected model.RunRecord
	errMsg   string

	view     int
	runTable table.Model
	detail   viewport.Model

	filterMode  bool
	filterInput textinput.Model

	width  int
	height int
}

// NewModel constructs a history browser showing at most limit runs.
func NewModel(source Source, limit int) *Model {
	m := &Model{
		source: source,
		limit:  limit,
		detail: viewport.New(0, 0),
	}
	m.filterInput = textinput.New()
	m.filterInput.Prompt = "Filter: "
	m.filterInput.Placeholder = "url, mode or status"
	m.filterInput.Cursor.SetMode(cursor.CursorBlink)
	m.runTable = table.New(
		table.WithColumns(runColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	m.runTable.SetStyles(runTableStyles())
	m.loadRuns()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "/":
			if m.view != viewRuns {
				return m, nil
			}
			m.filterMode = true
			return m, m.filterInput.Focus()
		case "enter":
			if m.view == viewRuns {
				m.openSelected()
			}
			return m, nil
		case "esc", "backspace":
			if m.view == viewDetail {
				m.view = viewRuns
				m.errMsg = ""
				return m, tea.ClearScreen
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.view == viewDetail {
			m.detail, cmd = m.detail.Update(msg)
		} else {
			m.runTable, cmd = m.runTable.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch {
	case m.view == viewDetail:
		body = m.detail.View()
	case len(m.runs) == 0 && m.errMsg == "":
		body = "No runs recorded yet."
	default:
		body = m.runTable.View()
	}
	parts := []string{m.renderHeader(), body}
	if m.filterMode {
		parts = append(parts, m.filterInput.View())
	}
	if m.errMsg != "" {
		parts = append(parts, errorStyle.Render(m.errMsg))
	}
	parts = append(parts, m.renderHelp())
	return strings.Join(parts, "\n")
}

func (m *Model) renderHeader() string {
	if m.view == viewDetail {
		return titleStyle.Render("Run "+shortID(m.selected.ID)) + "  " +
			headerStyle.Render(m.selected.ListingURL)
	}
	summary := fmt.Sprintf("Runs: %d", len(m.visible))
	if q := strings.TrimSpace(m.filterInput.Value()); q != "" {
		summary += fmt.Sprintf("  filter=%q", q)
	}
	return titleStyle.Render("History") + "  " + headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	if m.filterMode {
		return headerStyle.Render("enter: apply  esc: clear")
	}
	if m.view == viewDetail {
		return headerStyle.Render("Scroll: up/down/pgup/pgdn  Back: esc  Quit: q")
	}
	return headerStyle.Render("Move: up/down  Open: enter  Filter: /  Quit: q")
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filterMode = false
		m.filterInput.Blur()
		m.applyFilter()
		return m, nil
	case tea.KeyEsc:
		m.filterMode = false
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) loadRuns() {
	runs, err := m.source.ListRuns(context.Background(), m.limit)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load runs: %v", err)
		return
	}
	m.runs = runs
	m.applyFilter()
}

func (m *Model) applyFilter() {
	m.visible = filterRuns(m.runs, m.filterInput.Value())
	m.runTable.SetRows(runRows(m.visible))
	m.runTable.GotoTop()
}

func (m *Model) openSelected() {
	idx := m.runTable.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return
	}
	run := m.visible[idx]
	ctx := context.Background()
	entries, err := m.source.GetRunEntries(ctx, run.ID)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load run: %v", err)
		return
	}
	counts, err := m.source.GradeCounts(ctx, run.ID)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load grades: %v", err)
		return
	}
	m.errMsg = ""
	m.selected = run
	m.view = viewDetail
	m.detail.SetContent(renderDetail(run, entries, counts))
	m.detail.GotoTop()
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	bodyHeight := maxInt(3, m.height-3)
	m.runTable.SetColumns(runColumns(m.width))
	m.runTable.SetWidth(m.width)
	m.runTable.SetHeight(bodyHeight)
	m.detail.Width = m.width
	m.detail.Height = bodyHeight
	m.filterInput.Width = maxInt(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
}

func runColumns(width int) []table.Column {
	fixed := 10 + 19 + 9 + 8 + 8 + 12
	urlWidth := maxInt(12, width-fixed-12)
	return []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Ended", Width: 19},
		{Title: "Mode", Width: 9},
		{Title: "Problems", Width: 8},
		{Title: "Students", Width: 8},
		{Title: "Status", Width: 12},
		{Title: "Listing", Width: urlWidth},
	}
}

func runRows(runs []model.RunRecord) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, table.Row{
			shortID(run.ID),
			run.EndedAt.Local().Format("2006-01-02 15:04:05"),
			run.Mode,
			fmt.Sprintf("%d", run.ProblemCount),
			fmt.Sprintf("%d", run.StudentCount),
			run.Status,
			run.ListingURL,
		})
	}
	return rows
}

func runTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func filterRuns(runs []model.RunRecord, query string) []model.RunRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return runs
	}
	var out []model.RunRecord
	for _, run := range runs {
		hay := strings.ToLower(strings.Join([]string{run.ID, run.ListingURL, run.Mode, run.Status, run.SavePath}, " "))
		if strings.Contains(hay, query) {
			out = append(out, run)
		}
	}
	return out
}

func renderDetail(run model.RunRecord, entries []model.GradedEntry, counts map[string]int) string {
	cards := []string{
		metricCard("Students", fmt.Sprintf("%d", run.StudentCount)),
		metricCard("Problems", fmt.Sprintf("%d", run.ProblemCount)),
		metricCard("Mode", run.Mode),
		metricCard("Duration", run.EndedAt.Sub(run.StartedAt).Round(time.Second).String()),
	}
	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, cards...)}
	if dist := formatGradeCounts(counts); dist != "" {
		lines = append(lines, headerStyle.Render("Grades: "+dist))
	}
	if run.SavePath != "" {
		lines = append(lines, headerStyle.Render("Saved to "+run.SavePath))
	}
	if len(entries) == 0 {
		lines = append(lines, "", "No graded entries for this run.")
		return strings.Join(lines, "\n")
	}
	var buf bytes.Buffer
	if err := export.RenderTable(&buf, entries); err != nil {
		lines = append(lines, "", fmt.Sprintf("Failed to render table: %v", err))
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "", strings.TrimRight(buf.String(), "\n"))
	return strings.Join(lines, "\n")
}

func metricCard(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func formatGradeCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	grades := make([]string, 0, len(counts))
	for g := range counts {
		grades = append(grades, g)
	}
	sort.Slice(grades, func(i, j int) bool {
		return gradeOrder(grades[i]) < gradeOrder(grades[j])
	})
	parts := make([]string, 0, len(grades))
	for _, g := range grades {
		label := g
		if label == "" {
			label = "-"
		}
		parts = append(parts, fmt.Sprintf("%s=%d", label, counts[g]))
	}
	return strings.Join(parts, "  ")
}

// gradeOrder sorts A+ A0 B+ ... D0 F, then ungraded.
func gradeOrder(grade string) string {
	switch {
	case grade == "":
		return "~"
	case grade == "F":
		return "Z"
	case strings.HasSuffix(grade, "+"):
		return grade[:1] + "0"
	default:
		return grade[:1] + "1"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
