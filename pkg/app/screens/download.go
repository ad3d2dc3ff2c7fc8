package screens

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/scget/scget/pkg/app/components"
	"github.com/scget/scget/pkg/app/styles"
	"github.com/scget/scget/pkg/services"
)

// DownloadScreen renders a running download: active tracks with progress
// bars, finished tracks as a scrollback of result lines.
type DownloadScreen struct {
	ch      <-chan services.Progress
	tracker *components.ProgressTracker
	done    []string
	width   int
	height  int
}

func NewDownloadScreen(ch <-chan services.Progress) *DownloadScreen {
	return &DownloadScreen{
		ch:      ch,
		tracker: components.NewProgressTracker(80),
	}
}

func (s *DownloadScreen) Init() tea.Cmd {
	return s.waitForProgress
}

func (s *DownloadScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.tracker.SetWidth(msg.Width)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return s, tea.Quit
		}

	case progressMsg:
		p := msg.progress
		s.tracker.Update(p)
		switch p.Status {
		case services.StatusComplete:
			s.done = append(s.done, styles.StatusCompleted.Render("✅ ")+p.Message)
		case services.StatusSkipped:
			s.done = append(s.done, styles.MutedStyle.Render(fmt.Sprintf("⏭️  %s: %s", p.Title, p.Message)))
		case services.StatusError:
			s.done = append(s.done, styles.StatusError.Render(fmt.Sprintf("❌ %s: %v", p.Title, p.Error)))
		}
		return s, s.waitForProgress

	case progressDoneMsg:
		return s, tea.Quit
	}

	return s, nil
}

func (s *DownloadScreen) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("⬇️  Downloading"))
	b.WriteString("\n\n")

	for _, line := range s.done {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if active := s.tracker.View(); active != "" {
		b.WriteString("\n")
		b.WriteString(active)
	}

	b.WriteString(styles.HelpStyle.Render("q: close view (downloads continue)"))
	return b.String()
}

// Messages
type progressMsg struct {
	progress services.Progress
}

type progressDoneMsg struct{}

// Commands
func (s *DownloadScreen) waitForProgress() tea.Msg {
	p, ok := <-s.ch
	if !ok {
		return progressDoneMsg{}
	}
	return progressMsg{progress: p}
}
