package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/scget/scget/pkg/data"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all archived downloads",
	Long:  "Display everything recorded in the download archive in a formatted table",
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := data.Open(cfg.ArchivePath)
		cobra.CheckErr(err)
		defer repo.Close()

		downloads, err := repo.List()
		cobra.CheckErr(err)

		if len(downloads) == 0 {
			fmt.Println("🎵 Archive is empty. Use 'scget download' to fetch some tracks.")
			return
		}

		columns := []table.Column{
			{Title: "Title", Width: 36},
			{Title: "Artist", Width: 20},
			{Title: "Playlist", Width: 20},
			{Title: "File", Width: 36},
			{Title: "Date", Width: 10},
		}

		rows := []table.Row{}
		for _, d := range downloads {
			rows = append(rows, table.Row{
				truncateString(d.Title, 34),
				truncateString(d.Artist, 18),
				truncateString(d.Playlist, 18),
				truncateString(d.Filename, 34),
				d.DownloadedAt.Format("2006-01-02"),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(s)

		fmt.Printf("\n🎵 Archive (%d track(s))\n\n", len(downloads))
		fmt.Println(t.View())
	},
}
