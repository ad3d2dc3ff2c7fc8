package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/scget/scget/pkg/soundcloud"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for tracks",
	Long:  "Search SoundCloud for tracks and display the results in a table",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		if cfg.ClientID == "" {
			cobra.CheckErr(fmt.Errorf("no client_id configured (use --client-id, SCGET_CLIENT_ID or the config file)"))
		}
		client := soundcloud.New(cfg.ClientID, cfg.AuthToken)

		results, err := client.SearchTracks(query, limit)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("search failed: %w", err))
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return
		}

		var (
			orange = lipgloss.Color("208")

			headerStyle = lipgloss.NewStyle().Foreground(orange).Bold(true).Align(lipgloss.Center)
			cellStyle   = lipgloss.NewStyle().Padding(0, 1)
		)

		t := table.New().
			Border(lipgloss.HiddenBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(orange)).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				default:
					return cellStyle
				}
			}).
			Headers("#", "Title", "Artist", "Length", "URL")

		for i, track := range results {
			t.Row(
				fmt.Sprintf("%d", i+1),
				truncateString(track.Title, 42),
				truncateString(track.User.Username, 20),
				formatDuration(track.Duration),
				track.PermalinkURL,
			)
		}

		fmt.Println(t)
	},
}

func init() {
	searchCmd.Flags().Int("limit", 10, "Maximum number of results")
}
