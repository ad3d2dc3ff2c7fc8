package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"

	"github.com/scget/scget/pkg/app"
	"github.com/scget/scget/pkg/app/components"
	"github.com/scget/scget/pkg/data"
	"github.com/scget/scget/pkg/platform"
	"github.com/scget/scget/pkg/services"
	"github.com/scget/scget/pkg/soundcloud"
	"github.com/scget/scget/pkg/tags"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a track, playlist or user collection",
	Long: `Download whatever a SoundCloud URL denotes into the target directory.

Track URLs download a single file. Playlist URLs download every track into a
playlist subfolder. User URLs need a selector: --likes, --tracks,
--playlists, --reposts or --all.

Interrupted downloads leave a .part file behind and resume on the next run.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]

		opts, err := buildOptions(cmd)
		cobra.CheckErr(err)

		if _, err := os.Stat(opts.Path); err != nil {
			cobra.CheckErr(fmt.Errorf("invalid download path %q", opts.Path))
		}
		if cfg.ClientID == "" {
			cobra.CheckErr(fmt.Errorf("no client_id configured (use --client-id, SCGET_CLIENT_ID or the config file)"))
		}

		client := soundcloud.New(cfg.ClientID, cfg.AuthToken)
		if !client.ValidClientID() {
			cobra.CheckErr(fmt.Errorf("client_id is not valid"))
		}

		var archive services.Archive
		if noArchive, _ := cmd.Flags().GetBool("no-archive"); !noArchive {
			repo, err := data.Open(cfg.ArchivePath)
			cobra.CheckErr(err)
			defer repo.Close()
			archive = repo
		}

		tagger := tags.New(http.DefaultClient, services.NewFFmpeg(), tags.Options{
			OriginalArt:   opts.OriginalArt,
			ExtractArtist: opts.ExtractArtist,
			NoAlbumTag:    opts.NoAlbumTag,
		})

		downloader := services.NewDownloader(client, archive, tagger, opts)

		hideProgress, _ := cmd.Flags().GetBool("hide-progress")
		useTUI, _ := cmd.Flags().GetBool("tui")
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if useTUI {
				if err := app.RunDownload(downloader.GetProgressChannel()); err == nil {
					return
				}
				// No usable terminal; fall back to plain line output.
			}
			printProgress(downloader.GetProgressChannel(), hideProgress)
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := downloader.Run(ctx, url)
		downloader.Close()
		wg.Wait()
		if err != nil {
			cobra.CheckErr(fmt.Errorf("download failed: %w", err))
		}

		fmt.Printf("\n✅ %d downloaded, %d skipped of %d track(s)\n",
			result.Downloaded, result.Skipped, result.Total)
		if len(result.Errors) > 0 {
			for _, e := range result.Errors {
				fmt.Printf("❌ %v\n", e)
			}
			os.Exit(1)
		}
	},
}

func printProgress(ch <-chan services.Progress, hideBar bool) {
	inBar := false
	endBar := func() {
		if inBar {
			fmt.Println()
			inBar = false
		}
	}
	for p := range ch {
		switch p.Status {
		case services.StatusResolving:
			fmt.Printf("🔍 Resolving %s\n", p.Message)
		case services.StatusDownloading:
			if hideBar {
				continue
			}
			if p.Size > 0 {
				bar := components.RenderProgressBar(p.Received, p.Size, 30)
				fmt.Printf("\r⬇️  %s %s %3.0f%%", truncateString(p.Title, 40), bar,
					float64(p.Received)/float64(p.Size)*100)
				inBar = true
			} else if p.Received == 0 {
				fmt.Printf("⬇️  %s\n", truncateString(p.Title, 60))
			}
		case services.StatusConverting:
			endBar()
			fmt.Printf("🎛️  Converting %s to flac...\n", truncateString(p.Title, 50))
		case services.StatusTagging:
			endBar()
		case services.StatusSkipped:
			endBar()
			fmt.Printf("⏭️  %s: %s\n", truncateString(p.Title, 50), p.Message)
		case services.StatusComplete:
			endBar()
			fmt.Printf("✅ %s\n", p.Message)
		case services.StatusError:
			endBar()
			fmt.Printf("❌ %s: %v\n", truncateString(p.Title, 50), p.Error)
		}
	}
	endBar()
}

func buildOptions(cmd *cobra.Command) (services.Options, error) {
	flags := cmd.Flags()

	opts := services.Options{
		Path:               cfg.Path,
		NameFormat:         cfg.NameFormat,
		PlaylistNameFormat: cfg.PlaylistNameFormat,
		MaxConcurrent:      cfg.MaxConcurrent,
	}

	opts.Continue, _ = flags.GetBool("continue")
	opts.Overwrite, _ = flags.GetBool("overwrite")
	opts.Offset, _ = flags.GetInt("offset")
	opts.MaxTracks, _ = flags.GetInt("max-tracks")
	opts.NoPlaylistFolder, _ = flags.GetBool("no-playlist-folder")
	opts.AddToFile, _ = flags.GetBool("addtofile")
	opts.AddTimestamp, _ = flags.GetBool("addtimestamp")
	opts.OriginalName, _ = flags.GetBool("original-name")
	opts.OnlyMP3, _ = flags.GetBool("onlymp3")
	opts.NoOriginal, _ = flags.GetBool("no-original")
	opts.OnlyOriginal, _ = flags.GetBool("only-original")
	opts.OriginalArt, _ = flags.GetBool("original-art")
	opts.ExtractArtist, _ = flags.GetBool("extract-artist")
	opts.NoAlbumTag, _ = flags.GetBool("no-album-tag")
	opts.ForceMetadata, _ = flags.GetBool("force-metadata")
	opts.Flac, _ = flags.GetBool("flac")
	opts.Remove, _ = flags.GetBool("remove")

	if v, _ := flags.GetString("name-format"); v != "" {
		opts.NameFormat = v
	}
	if v, _ := flags.GetString("playlist-name-format"); v != "" {
		opts.PlaylistNameFormat = v
	}
	if v, _ := flags.GetInt("max-concurrent"); v > 0 {
		opts.MaxConcurrent = v
	}

	if v, _ := flags.GetString("min-size"); v != "" {
		size, err := platform.ParseSize(v)
		if err != nil {
			return opts, fmt.Errorf("min-size must be an integer with an optional k/m/g suffix")
		}
		opts.MinSize = size
	}
	if v, _ := flags.GetString("max-size"); v != "" {
		size, err := platform.ParseSize(v)
		if err != nil {
			return opts, fmt.Errorf("max-size must be an integer with an optional k/m/g suffix")
		}
		opts.MaxSize = size
	}

	selections := map[services.UserSelection]bool{}
	for flag, sel := range map[string]services.UserSelection{
		"likes":     services.SelectLikes,
		"tracks":    services.SelectTracks,
		"playlists": services.SelectPlaylists,
		"reposts":   services.SelectReposts,
		"all":       services.SelectAll,
	} {
		if on, _ := flags.GetBool(flag); on {
			selections[sel] = true
			opts.UserSelection = sel
		}
	}
	if len(selections) > 1 {
		return opts, fmt.Errorf("pick only one of --likes, --tracks, --playlists, --reposts, --all")
	}

	if opts.Offset < 1 {
		opts.Offset = 1
	}
	return opts, nil
}

func init() {
	downloadCmd.Flags().BoolP("continue", "c", false, "Skip tracks whose file already exists")
	downloadCmd.Flags().Bool("overwrite", false, "Overwrite existing files")
	downloadCmd.Flags().IntP("offset", "o", 1, "Begin playlists at this track number")
	downloadCmd.Flags().IntP("max-tracks", "n", 0, "Download only the n most recent playlist tracks")
	downloadCmd.Flags().Bool("no-playlist-folder", false, "Download playlist tracks into the main directory")
	downloadCmd.Flags().String("min-size", "", "Skip tracks smaller than size (k/m/g)")
	downloadCmd.Flags().String("max-size", "", "Skip tracks larger than size (k/m/g)")
	downloadCmd.Flags().String("name-format", "", "Filename template, e.g. \"{user} - {title}\"")
	downloadCmd.Flags().String("playlist-name-format", "", "Filename template inside playlists")
	downloadCmd.Flags().Bool("addtofile", false, "Prefix the artist to the filename if missing")
	downloadCmd.Flags().Bool("addtimestamp", false, "Prefix the track creation timestamp to the filename")
	downloadCmd.Flags().Bool("original-name", false, "Keep the original filename of downloads")
	downloadCmd.Flags().Bool("onlymp3", false, "Download the mp3 stream even when an original file exists")
	downloadCmd.Flags().Bool("no-original", false, "Never download original files, only streams")
	downloadCmd.Flags().Bool("only-original", false, "Only download tracks with an original file")
	downloadCmd.Flags().Bool("original-art", false, "Embed full-resolution cover art")
	downloadCmd.Flags().Bool("extract-artist", false, "Take the artist tag from the title instead of the uploader")
	downloadCmd.Flags().Bool("no-album-tag", false, "Do not set the album tag on playlist downloads")
	downloadCmd.Flags().Bool("force-metadata", false, "Rewrite metadata on already downloaded tracks")
	downloadCmd.Flags().Bool("flac", false, "Convert wav/aiff originals to flac")
	downloadCmd.Flags().Bool("remove", false, "Remove files in the target directory that this run did not produce")
	downloadCmd.Flags().Bool("hide-progress", false, "Hide the progress bar")
	downloadCmd.Flags().Bool("tui", false, "Show progress in a full-screen view")
	downloadCmd.Flags().Bool("no-archive", false, "Do not consult or record the download archive")
	downloadCmd.Flags().Int("max-concurrent", 0, "Maximum parallel track downloads")

	downloadCmd.Flags().BoolP("likes", "f", false, "Download all likes of a user")
	downloadCmd.Flags().BoolP("tracks", "t", false, "Download all uploads of a user")
	downloadCmd.Flags().BoolP("playlists", "p", false, "Download all playlists of a user")
	downloadCmd.Flags().BoolP("reposts", "r", false, "Download all reposts of a user")
	downloadCmd.Flags().BoolP("all", "a", false, "Download all uploads and reposts of a user")
}
