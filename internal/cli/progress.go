package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	matchlight "github.com/raphaelgruber/matchlight-go"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg advances the elapsed-time display.
type tickMsg time.Time

// pollMsg carries the job state after a status poll.
type pollMsg matchlight.ExportJob

// exportDoneMsg ends the export.
type exportDoneMsg struct {
	rows []matchlight.FeedRow
	err  error
}

// exportModel is the bubbletea model for a feed export.
type exportModel struct {
	feed     string
	maxPolls int
	started  time.Time
	now      time.Time
	job      *matchlight.ExportJob
	progress progress.Model
	theme    Theme
	savePath string
	rows     []matchlight.FeedRow
	done     bool
	quitting bool
	err      error
}

func newExportModel(feed string, maxPolls int, savePath string) exportModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	now := time.Now()
	return exportModel{
		feed:     feed,
		maxPolls: maxPolls,
		started:  now,
		now:      now,
		progress: prog,
		theme:    defaultTheme,
		savePath: savePath,
	}
}

func (m exportModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.progress.Init())
}

func (m exportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case pollMsg:
		job := matchlight.ExportJob(msg)
		m.job = &job
		return m, nil

	case exportDoneMsg:
		m.done = true
		m.rows = msg.rows
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m exportModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m exportModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	elapsed := m.now.Sub(m.started).Truncate(time.Second)
	if m.job == nil {
		return fmt.Sprintf("Preparing %s export... %s\n", m.feed, elapsed)
	}

	// Polls against the poll budget. Without a budget the bar stays empty.
	var pct float64
	if m.maxPolls > 0 {
		pct = float64(m.job.Polls) / float64(m.maxPolls)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d polls, %s", m.job.Polls, elapsed)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m exportModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render(fmt.Sprintf("\nExport of %s cancelled.\n", m.feed))
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Export failed: %s\n", m.err))
	}

	out := m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	if m.savePath != "" {
		out += fmt.Sprintf("  Saved to: %s\n", m.savePath)
	} else {
		out += fmt.Sprintf("  Rows: %d\n", len(m.rows))
	}
	return out
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runExportProgress downloads a feed export while rendering its poll
// progress. Ctrl+C cancels the download.
func runExportProgress(ctx context.Context, feed matchlight.FeedRef, start, end time.Time, savePath string) ([]matchlight.FeedRow, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newExportModel(feed.FeedIdent(), ml.Feeds.MaxPollAttempts, savePath)
	p := tea.NewProgram(model)

	go func() {
		rows, err := ml.Feeds.Download(ctx, feed, start, end, matchlight.DownloadOptions{
			SavePath: savePath,
			OnPoll:   func(job matchlight.ExportJob) { p.Send(pollMsg(job)) },
		})
		p.Send(exportDoneMsg{rows: rows, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(exportModel)
	if !ok {
		return nil, errors.New("unexpected progress model")
	}
	if m.quitting {
		return nil, context.Canceled
	}
	return m.rows, m.err
}
