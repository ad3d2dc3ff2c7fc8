package screens

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/scget/scget/pkg/app/components"
	"github.com/scget/scget/pkg/app/styles"
	"github.com/scget/scget/pkg/data"
)

// LibraryScreen browses the download archive.
type LibraryScreen struct {
	repo      *data.Repository
	trackList *components.TrackList
	width     int
	height    int
	err       error
}

func NewLibraryScreen(repo *data.Repository) *LibraryScreen {
	return &LibraryScreen{
		repo:      repo,
		trackList: components.NewTrackList(),
	}
}

func (s *LibraryScreen) Init() tea.Cmd {
	return s.loadArchive
}

func (s *LibraryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.trackList.Width = msg.Width - 4
		s.trackList.Height = msg.Height - 8

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return s, tea.Quit
		case "up", "k":
			s.trackList.Prev()
		case "down", "j":
			s.trackList.Next()
		case "r":
			return s, s.loadArchive
		case "d":
			// Forget the selected download (the file stays on disk)
			if selected := s.trackList.Selected(); selected != nil {
				return s, s.forgetDownload(selected.TrackID)
			}
		case "x":
			// Delete the selected download's file and its record
			if selected := s.trackList.Selected(); selected != nil {
				return s, s.deleteDownload(selected)
			}
		}

	case archiveLoadedMsg:
		s.trackList.SetItems(msg.items)
		s.err = msg.err

	case downloadForgottenMsg:
		if msg.err != nil {
			s.err = msg.err
		}
		return s, s.loadArchive
	}

	return s, nil
}

func (s *LibraryScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("🎵 Download Archive")

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
		errorMsg += "\n\n"
	}

	listView := s.trackList.View()

	help := styles.HelpStyle.Render(
		"↑/k: up • ↓/j: down • d: forget • x: delete file • r: refresh • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, errorMsg, listView, help)
}

// Messages
type archiveLoadedMsg struct {
	items []*data.Download
	err   error
}

type downloadForgottenMsg struct {
	err error
}

// Commands
func (s *LibraryScreen) loadArchive() tea.Msg {
	items, err := s.repo.List()
	return archiveLoadedMsg{items: items, err: err}
}

func (s *LibraryScreen) forgetDownload(trackID int64) tea.Cmd {
	return func() tea.Msg {
		return downloadForgottenMsg{err: s.repo.Delete(trackID)}
	}
}

func (s *LibraryScreen) deleteDownload(d *data.Download) tea.Cmd {
	return func() tea.Msg {
		if err := os.Remove(d.Filename); err != nil && !os.IsNotExist(err) {
			return downloadForgottenMsg{err: err}
		}
		return downloadForgottenMsg{err: s.repo.Delete(d.TrackID)}
	}
}
