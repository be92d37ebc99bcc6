package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imgharvest/pkg/auth"
	"imgharvest/pkg/config"
	"imgharvest/pkg/labels"
	"imgharvest/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage imgharvest configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IMGHARVEST_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'imgharvest.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

The session cookie is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration and the paths it refers to.

This command checks:
  - YAML syntax and value ranges
  - The labels file can be read
  - The output and log directories can be created`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

// sectionComments documents each top-level key of the generated file
var sectionComments = map[string]string{
	"search":        "Yandex Images search. The cookie may also come from 'imgharvest auth login'.",
	"pipeline":      "Labels are read from the first CSV column; every label is searched as\n<query_prefix><label> and normalized into a directory name.",
	"output":        "Images land in <base_directory>/<normalized_query>/<timestamp>.jpg",
	"throttle":      "Random pause in [0, max_delay) after every processed image",
	"retry":         "Backoff for results pages and image fetches",
	"download":      "max_file_size is in bytes; 0 means no limit",
	"notifications": "notification_type: terminal, desktop, none",
	"logging":       "level: debug, info, warn, error",
}

// exampleConfig renders the defaults as commented YAML
func exampleConfig() ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(config.DefaultConfig()); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}
	node.HeadComment = "imgharvest configuration\n\nEnvironment variables prefixed with " + config.EnvPrefix + " override these values."

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "imgharvest.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "To overwrite, first remove the existing file:\n  rm %s\n", configPath)
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	data, err := exampleConfig()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Point pipeline.labels_file at your CSV of labels")
	fmt.Fprintln(out, "2. Run 'imgharvest config validate' to check the configuration")
	fmt.Fprintln(out, "3. Start harvesting with 'imgharvest'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	display := *cfg
	if display.Search.Cookie != "" {
		display.Search.Cookie = auth.SanitizeAccount(&auth.Account{Cookie: cfg.Search.Cookie}).Cookie
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "2. Environment variables ("+config.EnvPrefix+"*)")
	fmt.Fprintln(out, "3. .env files")
	if configFile != "" {
		fmt.Fprintf(out, "4. Config file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "4. Config file (searched in standard locations)")
	}
	fmt.Fprintln(out, "5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		ui.PrintInfo("Validating", path)
	} else {
		ui.PrintInfo("Validating", "defaults and environment (no config file found)")
	}

	cfg, err := config.Load(path, nil)
	if err != nil {
		return err
	}

	problems := 0
	set, err := labels.Load(cfg.Pipeline.LabelsFile, labels.Options{SkipHeader: cfg.Pipeline.SkipHeader})
	if err != nil {
		ui.PrintError("Labels file", err)
		problems++
	} else if set.Len() == 0 {
		ui.PrintWarning("Labels file has no labels", cfg.Pipeline.LabelsFile)
	}

	if err := checkWritableDir(cfg.Output.BaseDirectory); err != nil {
		ui.PrintError("Output directory", err)
		problems++
	}
	if cfg.Logging.File != "" {
		if err := checkWritableDir(filepath.Dir(cfg.Logging.File)); err != nil {
			ui.PrintError("Log directory", err)
			problems++
		}
	}
	if cfg.Search.Cookie == "" {
		ui.PrintWarning("No search cookie configured; a stored session or anonymous search will be used")
	}
	if problems > 0 {
		return fmt.Errorf("configuration has %d problem(s)", problems)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Labels file", cfg.Pipeline.LabelsFile)
	if set != nil {
		ui.PrintInfo("Labels", fmt.Sprintf("%d", set.Len()))
	}
	ui.PrintInfo("Query prefix", fmt.Sprintf("%q", cfg.Pipeline.QueryPrefix))
	ui.PrintInfo("Images per label", fmt.Sprintf("%d", cfg.Pipeline.ImagesPerLabel))
	ui.PrintInfo("Output directory", cfg.Output.BaseDirectory)
	ui.PrintInfo("Size hint", cfg.Search.SizeHint)
	ui.PrintInfo("Max delay", cfg.Throttle.MaxDelay.String())
	ui.PrintInfo("Requests per minute", fmt.Sprintf("%d", cfg.Search.RequestsPerMinute))
	return nil
}

// findConfigFile returns the first config file found in the standard locations
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	for _, loc := range []string{
		".imgharvest.yaml",
		".imgharvest.yml",
		"imgharvest.yaml",
		filepath.Join(home, ".config", "imgharvest", "config.yaml"),
		filepath.Join(home, ".config", "imgharvest", "config.yml"),
		filepath.Join(home, ".imgharvest.yaml"),
	} {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// checkWritableDir creates dir if needed and verifies a file can be written in it
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".imgharvest-probe-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
