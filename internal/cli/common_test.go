package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
)

func TestFormatMessages(t *testing.T) {
	assert.Equal(t, "Error: boom", FormatError(errors.New("boom")))
	assert.Equal(t, "✓ done", FormatSuccess("done"))
	assert.Equal(t, "⚠ careful", FormatWarning("careful"))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{5*time.Minute + 20*time.Second, "5m"},
		{time.Hour + 30*time.Minute, "1h30m"},
		{2*time.Hour + 59*time.Minute + 50*time.Second, "3h00m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.in), tt.in.String())
	}
}

func TestFormatExpiry(t *testing.T) {
	text.DisableColors()
	defer text.EnableColors()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "unknown", FormatExpiry(time.Time{}, now))
	assert.Equal(t, "in 1h00m", FormatExpiry(now.Add(time.Hour), now))
	assert.Equal(t, "in 2m", FormatExpiry(now.Add(2*time.Minute), now))
	assert.Equal(t, "expired 30s ago", FormatExpiry(now.Add(-30*time.Second), now))
}

func TestFormatPresence(t *testing.T) {
	text.DisableColors()
	defer text.EnableColors()

	assert.Equal(t, "yes", FormatPresence(true))
	assert.Equal(t, "no", FormatPresence(false))
}

func TestProgress_Quiet(t *testing.T) {
	p := StartProgress(nil, "waiting", true)
	p.Stop()
	p.Stop()

	var nilProgress *Progress
	nilProgress.Stop()
}
