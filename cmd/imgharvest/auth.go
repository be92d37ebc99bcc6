package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"imgharvest/pkg/auth"
	"imgharvest/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Yandex sessions",
	Long: `Manage stored Yandex session cookies.

A session lowers the chance of captcha pages during long runs. Sessions are stored in:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - IMGHARVEST_COOKIE environment variable (read-only)

Never share your cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a session cookie",
	Long: `Store a Yandex session cookie under a name (default "default").

You will be prompted for:
  - The Cookie header value (hidden as you type)
  - User Agent (optional, press Enter for the configured one)`,
	Example: `  # Store the default session
  imgharvest auth login

  # Store a named session and use it
  imgharvest auth login work
  imgharvest --account work`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// removeCmd represents the auth remove command
var removeCmd = &cobra.Command{
	Use:     "remove [name]",
	Aliases: []string{"logout"},
	Short:   "Remove a stored session",
	Long: `Remove a stored session.

If no name is provided, you will be shown the stored sessions to choose from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(removeCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := "default"
	if len(args) > 0 {
		name = args[0]
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	auth.ShowCookieExtractionGuide(out)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(out, "Session '%s' already exists. Replace it? (y/N): ", name)
		if !confirm(reader, "y") {
			return nil
		}
	}

	var cookie string
	for {
		fmt.Fprint(out, "Cookie header value: ")
		cookie, err = readPassword(reader)
		if err != nil {
			return fmt.Errorf("failed to read cookie: %w", err)
		}
		if err := auth.ValidateCookie(cookie); err != nil {
			ui.PrintError("That doesn't look like a cookie header", err)
			fmt.Fprint(out, "Try again? (Y/n): ")
			if confirm(reader, "n") {
				return errors.New("no cookie entered")
			}
			continue
		}
		break
	}

	fmt.Fprint(out, "User Agent (press Enter to keep the configured one): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Name:      name,
		Cookie:    cookie,
		UserAgent: strings.TrimSpace(userAgent),
	}
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	ui.PrintSuccess("Session saved: " + name)
	ui.PrintInfo("Cookies", strings.Join(auth.CookieNames(account.Cookie), ", "))
	fmt.Fprintf(out, "\nUse it with:\n  imgharvest --account %s\n", name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored sessions", "Use 'imgharvest auth login' to add one")
		return nil
	}

	out := cmd.OutOrStdout()
	ui.PrintHighlight("Stored Sessions")
	fmt.Fprintln(out)
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(out, "%d. Name: %s\n", i+1, sanitized.Name)
		fmt.Fprintf(out, "   Cookie: %s\n", sanitized.Cookie)
		if sanitized.UserAgent != "" {
			fmt.Fprintf(out, "   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(out, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if len(args) == 1 {
		if err := manager.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove session: %w", err)
		}
		ui.PrintSuccess("Session removed: " + args[0])
		return nil
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintWarning("No stored sessions found")
		return nil
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())
	fmt.Fprintln(out, "Select session to remove:")
	for i, account := range accounts {
		fmt.Fprintf(out, "  %d. %s\n", i+1, account.Name)
	}
	fmt.Fprintf(out, "  0. Cancel\n\nChoice: ")

	input, _ := reader.ReadString('\n')
	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return nil
	case choice < 0 || choice > len(accounts):
		return fmt.Errorf("invalid choice: %s", strings.TrimSpace(input))
	}

	name := accounts[choice-1].Name
	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	ui.PrintSuccess("Session removed: " + name)
	return nil
}

// confirm reads one answer and reports whether it starts with want
func confirm(reader *bufio.Reader, want string) bool {
	input, _ := reader.ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), want)
}

// readPassword reads a secret from the terminal without echoing, falling
// back to a plain line read when stdin is not a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
