package cmd

import (
	"fmt"

	"github.com/scget/scget/pkg/soundcloud"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [url]",
	Short: "Show what a URL denotes without downloading",
	Long:  "Resolve a SoundCloud URL and report whether it is a track, a playlist or a user profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.ClientID == "" {
			cobra.CheckErr(fmt.Errorf("no client_id configured (use --client-id, SCGET_CLIENT_ID or the config file)"))
		}
		client := soundcloud.New(cfg.ClientID, cfg.AuthToken)

		resource, err := client.Resolve(args[0])
		cobra.CheckErr(err)

		switch resource.Kind {
		case soundcloud.KindTrack:
			t := resource.Track
			fmt.Printf("🎵 Track: %s - %s (%s)\n", t.User.Username, t.Title, formatDuration(t.Duration))
			if t.Downloadable && t.HasDownloadsLeft {
				fmt.Println("   Original file available for download")
			}
		case soundcloud.KindPlaylist:
			p := resource.Playlist
			fmt.Printf("📋 Playlist: %s by %s (%d track(s))\n", p.Title, p.User.Username, p.TrackCount)
		case soundcloud.KindUser:
			u := resource.User
			fmt.Printf("👤 User: %s (%d track(s), %d playlist(s), %d like(s))\n",
				u.Username, u.TrackCount, u.PlaylistCount, u.LikesCount)
			fmt.Println("   Use 'scget download' with --likes, --tracks, --playlists, --reposts or --all")
		}
	},
}
