package cmd

import (
	"os"

	"github.com/scget/scget/pkg/app"
	"github.com/scget/scget/pkg/config"
	"github.com/scget/scget/pkg/data"
	"github.com/scget/scget/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scget",
	Short: "Download music from SoundCloud",
	Long:  "Fetch tracks, playlists and user collections from SoundCloud into a local directory, resumably",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logger.SetLevel(logrus.DebugLevel)
		} else if errOnly, _ := cmd.Flags().GetBool("error"); errOnly {
			logger.SetLevel(logrus.ErrorLevel)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// Flags beat config file and environment
		if v, _ := cmd.Flags().GetString("client-id"); v != "" {
			cfg.ClientID = v
		}
		if v, _ := cmd.Flags().GetString("auth-token"); v != "" {
			cfg.AuthToken = v
		}
		if v, _ := cmd.Flags().GetString("path"); v != "" {
			cfg.Path = v
		}
		if v, _ := cmd.Flags().GetString("archive"); v != "" {
			cfg.ArchivePath = v
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Browse the archive by default
		repo, err := data.Open(cfg.ArchivePath)
		if err != nil {
			cobra.CheckErr(err)
		}
		defer repo.Close()

		a := app.NewApp(repo)
		if err := a.Run(); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Set log level to debug")
	rootCmd.PersistentFlags().Bool("error", false, "Set log level to error")
	rootCmd.PersistentFlags().String("client-id", "", "SoundCloud client_id to use")
	rootCmd.PersistentFlags().String("auth-token", "", "OAuth token for private/followed content")
	rootCmd.PersistentFlags().String("path", "", "Directory for downloaded files")
	rootCmd.PersistentFlags().String("archive", "", "Path of the download archive database")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(resolveCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
