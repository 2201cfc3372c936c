package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}

// FormatExpiry describes when a token expires relative to now, coloured
// by urgency. A zero expiry is reported as unknown.
func FormatExpiry(expiry, now time.Time) string {
	if expiry.IsZero() {
		return text.FgYellow.Sprint("unknown")
	}
	remaining := expiry.Sub(now)
	switch {
	case remaining <= 0:
		return text.FgRed.Sprintf("expired %s ago", FormatDuration(-remaining))
	case remaining < 5*time.Minute:
		return text.FgYellow.Sprintf("in %s", FormatDuration(remaining))
	default:
		return text.FgGreen.Sprintf("in %s", FormatDuration(remaining))
	}
}

// FormatDuration renders d rounded to the largest sensible unit.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Round(time.Second).Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Round(time.Minute).Minutes()))
	default:
		h := int(d / time.Hour)
		m := int((d % time.Hour).Round(time.Minute).Minutes())
		if m == 60 {
			h++
			m = 0
		}
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

// FormatPresence renders a yes/no flag.
func FormatPresence(ok bool) string {
	if ok {
		return text.FgGreen.Sprint("yes")
	}
	return text.FgRed.Sprint("no")
}
