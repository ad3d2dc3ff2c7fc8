package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/scget/scget/pkg/app/styles"
	"github.com/scget/scget/pkg/data"
)

// TrackList renders the archive as a selectable list of cards.
type TrackList struct {
	Items         []*data.Download
	SelectedIndex int
	Width         int
	Height        int
}

func NewTrackList() *TrackList {
	return &TrackList{
		Items:  []*data.Download{},
		Width:  80,
		Height: 20,
	}
}

func (l *TrackList) SetItems(items []*data.Download) {
	l.Items = items
	if l.SelectedIndex >= len(items) {
		l.SelectedIndex = len(items) - 1
	}
	if l.SelectedIndex < 0 {
		l.SelectedIndex = 0
	}
}

func (l *TrackList) Next() {
	if len(l.Items) == 0 {
		return
	}
	l.SelectedIndex++
	if l.SelectedIndex >= len(l.Items) {
		l.SelectedIndex = 0
	}
}

func (l *TrackList) Prev() {
	if len(l.Items) == 0 {
		return
	}
	l.SelectedIndex--
	if l.SelectedIndex < 0 {
		l.SelectedIndex = len(l.Items) - 1
	}
}

func (l *TrackList) Selected() *data.Download {
	if len(l.Items) == 0 || l.SelectedIndex >= len(l.Items) {
		return nil
	}
	return l.Items[l.SelectedIndex]
}

func (l *TrackList) View() string {
	if len(l.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render("Archive is empty. Run 'scget download <url>' first")
		return lipgloss.Place(l.Width, l.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	var out string
	for i, item := range l.Items {
		cardStyle := styles.CardStyle
		if i == l.SelectedIndex {
			cardStyle = styles.ActiveCardStyle
		}

		title := styles.TitleStyle.Render(item.Title)
		artist := styles.TextStyle.Render(item.Artist)

		origin := "single track"
		if item.Playlist != "" {
			origin = fmt.Sprintf("playlist: %s", item.Playlist)
		}
		details := styles.MutedStyle.Render(fmt.Sprintf(
			"%s • %s • %s",
			origin,
			formatSize(item.Size),
			item.DownloadedAt.Format("2006-01-02 15:04"),
		))
		file := styles.MutedStyle.Render(item.Filename)

		cardContent := lipgloss.JoinVertical(
			lipgloss.Left,
			title,
			artist,
			details,
			file,
		)

		out += cardStyle.Width(l.Width - 4).Render(cardContent)
		out += "\n"
	}
	return out
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(size)/float64(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/float64(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
