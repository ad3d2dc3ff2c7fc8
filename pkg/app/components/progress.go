package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scget/scget/pkg/app/styles"
	"github.com/scget/scget/pkg/services"
)

// ProgressTracker aggregates per-track progress updates for display.
type ProgressTracker struct {
	downloads map[int64]*services.Progress
	width     int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		downloads: make(map[int64]*services.Progress),
		width:     width,
	}
}

func (p *ProgressTracker) Update(progress services.Progress) {
	if progress.Status == services.StatusComplete || progress.Status == services.StatusSkipped {
		delete(p.downloads, progress.TrackID)
		return
	}
	prog := progress // copy
	p.downloads[progress.TrackID] = &prog
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
}

func (p *ProgressTracker) Clear() {
	p.downloads = make(map[int64]*services.Progress)
}

func (p *ProgressTracker) HasActive() bool {
	return len(p.downloads) > 0
}

func (p *ProgressTracker) View() string {
	if len(p.downloads) == 0 {
		return ""
	}

	ids := make([]int64, 0, len(p.downloads))
	for id := range p.downloads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Active Downloads"))
	b.WriteString("\n\n")

	for _, id := range ids {
		progress := p.downloads[id]

		b.WriteString(styles.TextStyle.Render(progress.Title))
		b.WriteString("\n")

		statusText := progress.Status
		if progress.Size > 0 {
			percentage := float64(progress.Received) / float64(progress.Size) * 100
			statusText = fmt.Sprintf("%s (%s / %s - %.0f%%)",
				progress.Status, formatSize(progress.Received), formatSize(progress.Size), percentage)

			bar := RenderProgressBar(progress.Received, progress.Size, int64(p.width-4))
			b.WriteString(bar)
			b.WriteString("\n")
		}

		b.WriteString(styles.StatusStyle(progress.Status).Render(statusText))
		b.WriteString("\n")

		if progress.Error != nil {
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", progress.Error)))
			b.WriteString("\n")
		}

		b.WriteString("\n")
	}
	return b.String()
}

// RenderProgressBar renders a fixed-width bar filled proportionally.
func RenderProgressBar(current, total, width int64) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	filled := current * width / total
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", int(filled)) + strings.Repeat("░", int(width-filled))
	return styles.ProgressBarStyle.Render(bar)
}
