package ui

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"imgharvest/pkg/config"
	"imgharvest/pkg/pipeline"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("imgharvest").Show($toast)
	`, title, message)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

// platformSender returns the desktop sender for the current OS, or nil
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier reports run completion on the terminal and, when configured, the desktop
type Notifier struct {
	out     io.Writer
	sender  NotificationSender
	enabled bool
	notify  bool
}

// NotifierOption customises a Notifier
type NotifierOption func(*Notifier)

// WithSender replaces the desktop sender
func WithSender(s NotificationSender) NotifierOption {
	return func(n *Notifier) { n.sender = s }
}

// WithOutput replaces the terminal writer
func WithOutput(w io.Writer) NotifierOption {
	return func(n *Notifier) { n.out = w }
}

// NewNotifier creates a Notifier from the notification settings
func NewNotifier(cfg config.NotificationConfig, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		out:     Output,
		enabled: cfg.Enabled && cfg.NotificationType != "none",
		notify:  cfg.OnComplete,
	}
	if cfg.NotificationType == "desktop" {
		n.sender = platformSender()
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendNotification prints to the console and sends a desktop notification
func (n *Notifier) SendNotification(title, message string) {
	if !n.enabled {
		return
	}
	fmt.Fprintf(n.out, "\n%s: %s\n", Cyan(title), Yellow(message))
	n.send(title, message)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	if !n.enabled {
		return
	}
	fmt.Fprintf(n.out, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	if !n.enabled {
		return
	}
	fmt.Fprintf(n.out, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

// NotifyRunComplete announces the outcome of a run
func (n *Notifier) NotifyRunComplete(summary *pipeline.Summary) {
	if !n.notify {
		return
	}
	message := SummaryMessage(summary)
	if summary.Saved == 0 && len(summary.Labels) > 0 {
		n.SendError("Harvest finished with no images", message)
		return
	}
	n.SendSuccess("Harvest complete", message)
}

// SummaryMessage renders a one-line description of a run
func SummaryMessage(summary *pipeline.Summary) string {
	msg := fmt.Sprintf("%d images saved for %d labels", summary.Saved, len(summary.Labels))
	if summary.Failed > 0 {
		msg += fmt.Sprintf(", %d skipped", summary.Failed)
	}
	if summary.SearchErrors > 0 {
		msg += fmt.Sprintf(", %d searches failed", summary.SearchErrors)
	}
	return msg
}

// send ignores delivery errors; desktop notifications are best effort
func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}
