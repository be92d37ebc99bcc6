package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"imgharvest/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd runs the harvest when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgharvest",
	Short: "Build a labelled image dataset from Yandex Images",
	Long: `imgharvest reads a CSV of colour labels, searches Yandex Images for
"<prefix><label>" and stores up to N preview images per label under
downloaded_images/<normalized_query>/.

Features:
  - Cyrillic transliteration and query normalization
  - Lazy, paginated search with captcha detection
  - Per-minute request limiting and a randomized pause between images
  - Retry with exponential backoff for page and image fetches
  - Session cookies kept in the system keychain or an encrypted file
  - Optional per-query metadata.json and a live terminal dashboard`,
	Example: `  # Harvest with defaults (colors_list.csv, 50 images per label)
  imgharvest

  # Five large images per label into ./dataset
  imgharvest --count 5 --size large --output ./dataset

  # Custom label file and query prefix, with the dashboard
  imgharvest --labels palette.csv --prefix "kitchen in " --tui`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || useTUI {
			return
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
	RunE: runHarvest,
}

// Execute runs the root command and exits non-zero on any error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./imgharvest.yaml or ~/.config/imgharvest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress banners and progress output")

	rootCmd.SetVersionTemplate(`imgharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
