package cli

import (
	"context"
	"fmt"
	"strings"

	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/isomill/pkg/progress"
)

const progressBarWidth = 40

var (
	stageLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	stageDoneStyle  = lipgloss.NewStyle().Foreground(colorGreen)
)

// stageMsg is one progress update.
type stageMsg struct {
	stage       progress.Stage
	done, total int
}

// finishedMsg is delivered when the update channel closes.
type finishedMsg struct{}

// chanReporter forwards updates to a channel and drops them when the
// channel is full.
type chanReporter chan stageMsg

func (c chanReporter) Report(stage progress.Stage, done, total int) {
	select {
	case c <- stageMsg{stage: stage, done: done, total: total}:
	default:
	}
}

// ProgressModel renders one bar per pipeline stage.
type ProgressModel struct {
	Title    string
	Aborted  bool
	updates  <-chan stageMsg
	bar      bprogress.Model
	percents map[progress.Stage]float64
	current  progress.Stage
	finished bool
}

// NewProgressModel creates a model that consumes updates until the channel
// is closed.
func NewProgressModel(title string, updates <-chan stageMsg) ProgressModel {
	return ProgressModel{
		Title:    title,
		updates:  updates,
		bar:      bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithWidth(progressBarWidth)),
		percents: make(map[progress.Stage]float64, len(progress.Stages)),
	}
}

func waitForUpdate(ch <-chan stageMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return finishedMsg{}
		}
		return msg
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Aborted = true
			return m, tea.Quit
		}
	case stageMsg:
		p := 1.0
		if msg.total > 0 {
			p = float64(msg.done) / float64(msg.total)
		}
		m.percents[msg.stage] = p
		m.current = msg.stage
		return m, waitForUpdate(m.updates)
	case finishedMsg:
		m.finished = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		w := msg.Width - 20
		if w > progressBarWidth {
			w = progressBarWidth
		}
		if w < 10 {
			w = 10
		}
		m.bar.Width = w
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n\n")
	for _, stage := range progress.Stages {
		p, seen := m.percents[stage]
		label := stageLabelStyle.Render(string(stage))
		bar := m.bar.ViewAs(p)
		switch {
		case seen && p >= 1 && stage != m.current:
			bar += " " + stageDoneStyle.Render(iconSuccess)
		case !seen:
			bar = StyleDim.Render(strings.Repeat("·", m.bar.Width))
		}
		fmt.Fprintf(&b, "%s %s\n", label, bar)
	}
	if !m.finished {
		b.WriteString("\n" + StyleDim.Render("q cancel") + "\n")
	}
	return b.String()
}

// runWithProgressBar runs fn with a reporter wired to a progress bar on
// stderr. Quitting the bar cancels the context passed to fn.
func runWithProgressBar(ctx context.Context, title string, fn func(ctx context.Context, rep progress.Reporter) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chanReporter, 64)
	result := make(chan error, 1)
	go func() {
		defer close(updates)
		result <- fn(ctx, updates)
	}()

	prog := tea.NewProgram(NewProgressModel(title, updates), tea.WithOutput(uiOut), tea.WithContext(ctx))
	final, err := prog.Run()
	if m, ok := final.(ProgressModel); ok && m.Aborted {
		cancel()
	}
	runErr := <-result
	if runErr != nil {
		return runErr
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("progress display: %w", err)
	}
	return nil
}
