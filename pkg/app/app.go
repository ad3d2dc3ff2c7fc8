package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/scget/scget/pkg/app/screens"
	"github.com/scget/scget/pkg/data"
	"github.com/scget/scget/pkg/services"
)

type App struct {
	repo *data.Repository
}

func NewApp(repo *data.Repository) *App {
	return &App{repo: repo}
}

func (a *App) Run() error {
	model := screens.NewLibraryScreen(a.repo)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RunDownload displays live progress for a download run. It returns when the
// progress channel closes or the user dismisses the view.
func RunDownload(ch <-chan services.Progress) error {
	p := tea.NewProgram(screens.NewDownloadScreen(ch))
	_, err := p.Run()
	return err
}
