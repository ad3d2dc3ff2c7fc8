package components

import (
	"strings"
	"testing"

	"github.com/scget/scget/pkg/services"
	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerUpdate(t *testing.T) {
	p := NewProgressTracker(80)
	assert.False(t, p.HasActive())
	assert.Equal(t, "", p.View())

	p.Update(services.Progress{TrackID: 1, Title: "One", Status: services.StatusDownloading, Received: 50, Size: 100})
	p.Update(services.Progress{TrackID: 2, Title: "Two", Status: services.StatusTagging})
	assert.True(t, p.HasActive())

	view := p.View()
	assert.Contains(t, view, "One")
	assert.Contains(t, view, "Two")
	assert.Contains(t, view, "50%")

	// Finished tracks drop out of the view
	p.Update(services.Progress{TrackID: 1, Status: services.StatusComplete})
	view = p.View()
	assert.NotContains(t, view, "One")
	assert.Contains(t, view, "Two")

	p.Update(services.Progress{TrackID: 2, Status: services.StatusSkipped})
	assert.False(t, p.HasActive())
}

func TestProgressTrackerClear(t *testing.T) {
	p := NewProgressTracker(80)
	p.Update(services.Progress{TrackID: 1, Title: "One", Status: services.StatusDownloading})
	p.Clear()
	assert.False(t, p.HasActive())
}

func TestRenderProgressBar(t *testing.T) {
	bar := RenderProgressBar(50, 100, 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))

	bar = RenderProgressBar(100, 100, 10)
	assert.Equal(t, 10, strings.Count(bar, "█"))

	// Over-delivery never overflows the bar
	bar = RenderProgressBar(150, 100, 10)
	assert.Equal(t, 10, strings.Count(bar, "█"))

	assert.Equal(t, "", RenderProgressBar(10, 0, 10))
	assert.Equal(t, "", RenderProgressBar(10, -1, 10))
}
