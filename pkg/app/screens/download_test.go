package screens

import (
	"fmt"
	"testing"

	"github.com/scget/scget/pkg/services"
	"github.com/stretchr/testify/assert"
)

func TestDownloadScreenProgress(t *testing.T) {
	ch := make(chan services.Progress, 10)
	s := NewDownloadScreen(ch)

	model, cmd := s.Update(progressMsg{progress: services.Progress{
		TrackID: 1, Title: "One", Status: services.StatusDownloading, Received: 50, Size: 100,
	}})
	assert.NotNil(t, cmd) // keeps listening
	assert.Contains(t, model.View(), "One")

	// Completion moves the track from active to the scrollback
	model, _ = model.(*DownloadScreen).Update(progressMsg{progress: services.Progress{
		TrackID: 1, Status: services.StatusComplete, Message: "/music/one.mp3",
	}})
	view := model.View()
	assert.Contains(t, view, "/music/one.mp3")

	model, _ = model.(*DownloadScreen).Update(progressMsg{progress: services.Progress{
		TrackID: 2, Title: "Two", Status: services.StatusSkipped, Message: "already in archive",
	}})
	assert.Contains(t, model.View(), "already in archive")

	model, _ = model.(*DownloadScreen).Update(progressMsg{progress: services.Progress{
		TrackID: 3, Title: "Three", Status: services.StatusError, Error: fmt.Errorf("boom"),
	}})
	assert.Contains(t, model.View(), "boom")
}

func TestDownloadScreenWaitForProgress(t *testing.T) {
	ch := make(chan services.Progress, 1)
	s := NewDownloadScreen(ch)

	ch <- services.Progress{Status: services.StatusResolving}
	msg := s.waitForProgress()
	assert.IsType(t, progressMsg{}, msg)

	// Closed channel ends the view
	close(ch)
	msg = s.waitForProgress()
	assert.IsType(t, progressDoneMsg{}, msg)

	_, cmd := s.Update(progressDoneMsg{})
	assert.NotNil(t, cmd)
}
