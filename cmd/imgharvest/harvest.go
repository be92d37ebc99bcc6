package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"imgharvest/pkg/auth"
	"imgharvest/pkg/config"
	"imgharvest/pkg/labels"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/pipeline"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/ui"
	"imgharvest/pkg/ui/tui"
	"imgharvest/pkg/yandex"
)

var (
	// Harvest flags
	labelsFile     string
	outputDir      string
	imagesPerLabel int
	queryPrefix    string
	sizeHint       string
	maxDelay       time.Duration
	accountName    string
	skipHeader     bool
	showDict       bool
	saveMetadata   bool
	notifications  bool
	useTUI         bool
	verbose        bool
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&labelsFile, "labels", "l", "", "CSV file of labels (default colors_list.csv)")
	flags.StringVarP(&outputDir, "output", "o", "", "root directory for images (default downloaded_images)")
	flags.IntVarP(&imagesPerLabel, "count", "n", 0, "maximum images per label (default 50)")
	flags.StringVar(&queryPrefix, "prefix", "", "text prepended to every label before normalization")
	flags.StringVar(&sizeHint, "size", "", "image size hint: small, medium, large, wallpaper")
	flags.DurationVar(&maxDelay, "max-delay", 0, "upper bound of the random pause after each image")
	flags.StringVarP(&accountName, "account", "a", "", "stored session to send with searches")
	flags.BoolVar(&skipHeader, "skip-header", false, "treat the first CSV row as a header")
	flags.BoolVar(&showDict, "show-dict", true, "log every label with its raw variants")
	flags.BoolVar(&saveMetadata, "save-metadata", false, "write metadata.json into every query directory")
	flags.BoolVar(&notifications, "notifications", true, "announce completion")
	flags.BoolVar(&useTUI, "tui", false, "show the live label dashboard")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print every saved and skipped image")
}

// collectFlags returns only the flags set on the command line, keyed the way
// config.MergeCommandLineFlags expects
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	flags := make(map[string]interface{})

	if changed("labels") {
		flags["labels"] = labelsFile
	}
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("count") {
		flags["count"] = imagesPerLabel
	}
	if changed("prefix") {
		flags["prefix"] = queryPrefix
	}
	if changed("size") {
		flags["size"] = sizeHint
	}
	if changed("max-delay") {
		flags["max-delay"] = maxDelay
	}
	if changed("skip-header") {
		flags["skip-header"] = skipHeader
	}
	if changed("show-dict") {
		flags["show-dict"] = showDict
	}
	if changed("save-metadata") {
		flags["save-metadata"] = saveMetadata
	}
	if changed("notifications") {
		flags["notifications"] = notifications
	}
	if cmd.Flags().Changed("log-level") || cmd.InheritedFlags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	return flags
}

func runHarvest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := newRunLogger(cfg)
	if err != nil {
		return err
	}

	if err := applySession(cfg, log); err != nil {
		return err
	}

	set, err := labels.Load(cfg.Pipeline.LabelsFile, labels.Options{
		SkipHeader: cfg.Pipeline.SkipHeader,
		ShowDict:   cfg.Pipeline.ShowDict,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}
	if set.Len() == 0 {
		ui.PrintWarning("No labels found in " + cfg.Pipeline.LabelsFile)
	}

	client := yandex.NewClient(cfg.Search,
		yandex.WithLogger(log.WithField("component", "yandex")),
		yandex.WithRetry(retry.FromSettings(cfg.Retry, log)),
		yandex.WithMaxFileSize(cfg.Download.MaxFileSize),
		yandex.WithFetchTimeout(cfg.Download.DownloadTimeout),
	)

	if !quiet && !useTUI {
		ui.PrintInfo("Labels", fmt.Sprintf("%d from %s", set.Len(), cfg.Pipeline.LabelsFile))
		ui.PrintInfo("Output", cfg.Output.BaseDirectory)
		ui.PrintInfo("Images per label", fmt.Sprintf("%d", cfg.Pipeline.ImagesPerLabel))
	}

	var summary *pipeline.Summary
	if useTUI {
		summary, err = runWithDashboard(ctx, stop, cfg, client, log, set.Labels())
	} else {
		var observer pipeline.Observer = pipeline.NopObserver{}
		if !quiet {
			observer = ui.NewConsole(ui.Output, verbose)
		}
		p := pipeline.New(cfg, client, log, pipeline.WithObserver(observer))
		summary, err = p.Run(ctx, set.Labels())
	}

	if summary != nil {
		ui.NewNotifier(cfg.Notifications).NotifyRunComplete(summary)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted")
		}
		return err
	}
	return nil
}

// runWithDashboard runs the pipeline in the background while the dashboard
// owns the terminal
func runWithDashboard(ctx context.Context, stop context.CancelFunc, cfg *config.Config, client *yandex.Client, log logger.Logger, labelList []string) (*pipeline.Summary, error) {
	dashboard := tui.NewTUI(tui.WithQuit(stop))
	p := pipeline.New(cfg, client, log, pipeline.WithObserver(dashboard))

	var (
		summary *pipeline.Summary
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = p.Run(ctx, labelList)
	}()

	uiErr := dashboard.Start()
	if uiErr != nil {
		stop()
	}
	<-done

	if summary != nil && !quiet {
		ui.PrintSuccess(ui.SummaryMessage(summary))
	}
	if runErr != nil {
		return summary, runErr
	}
	if uiErr != nil {
		return summary, fmt.Errorf("dashboard failed: %w", uiErr)
	}
	return summary, nil
}

// newRunLogger builds the logger for a run. The dashboard owns the terminal,
// so in that mode logs go to the configured file or nowhere.
func newRunLogger(cfg *config.Config) (logger.Logger, error) {
	if !useTUI {
		if err := logger.Initialize(&cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return logger.GetLogger(), nil
	}

	if cfg.Logging.File == "" {
		return logger.NewWithWriter(io.Discard), nil
	}
	file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger.NewWithWriter(file), nil
}

// applySession fills the search cookie from the credential store. An explicit
// --account must exist; otherwise a configured cookie wins and a stored
// session is used when available.
func applySession(cfg *config.Config, log logger.Logger) error {
	if accountName == "" && cfg.Search.Cookie != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		if accountName != "" {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		log.WithError(err).Debug("Credential store unavailable, searching without a session")
		return nil
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
		if err != nil {
			return fmt.Errorf("no stored session %q, run 'imgharvest auth login %s': %w", accountName, accountName, err)
		}
	} else {
		account, err = manager.RetrieveDefault()
		if err != nil {
			log.Debug("No stored session, searching anonymously")
			return nil
		}
	}

	cfg.Search.Cookie = account.Cookie
	if account.UserAgent != "" {
		cfg.Search.UserAgent = account.UserAgent
	}
	log.WithFields(map[string]interface{}{
		"account": account.Name,
		"cookies": auth.CookieNames(account.Cookie),
	}).Info("Using stored session")
	return nil
}
