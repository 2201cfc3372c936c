package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qwenauth/internal/clock"
	"qwenauth/pkg/logging"
)

const (
	// DefaultPollInterval is used when the server does not advertise one.
	DefaultPollInterval = 5 * time.Second

	// PollMargin is added to the advertised interval to stay clear of the
	// server's rate limit under clock skew and latency.
	PollMargin = 3 * time.Second

	// SlowDownStep is added to the interval on every slow_down response.
	SlowDownStep = 5 * time.Second

	// MaxPollInterval caps slow_down growth.
	MaxPollInterval = 15 * time.Second

	// DefaultDeviceCodeLifetime is used when the server omits expires_in.
	DefaultDeviceCodeLifetime = 15 * time.Minute
)

// DeviceTokenPoller performs a single device token request.
type DeviceTokenPoller interface {
	PollDeviceToken(ctx context.Context, deviceCode, codeVerifier string) (*TokenResponse, error)
}

// Poller runs the device flow polling loop.
type Poller struct {
	client DeviceTokenPoller
	clock  clock.Clock
}

// NewPoller creates a poller over client. A nil clock means the wall clock.
func NewPoller(client DeviceTokenPoller, clk clock.Clock) *Poller {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Poller{client: client, clock: clk}
}

// InitialInterval returns the first polling interval for auth.
func InitialInterval(auth *DeviceAuthorization) time.Duration {
	interval := DefaultPollInterval
	if auth != nil && auth.Interval > 0 {
		interval = time.Duration(auth.Interval) * time.Second
	}
	return interval + PollMargin
}

// nextSlowDownInterval grows interval by SlowDownStep up to MaxPollInterval.
// An interval already above the cap is left as is.
func nextSlowDownInterval(interval time.Duration) time.Duration {
	if interval >= MaxPollInterval {
		return interval
	}
	next := interval + SlowDownStep
	if next > MaxPollInterval {
		next = MaxPollInterval
	}
	return next
}

// Poll waits for the user to approve auth. Each iteration sleeps the current
// interval and then polls once. It returns the first token response, or
// ErrPollingTimeout once the device code lifetime has elapsed, or the first
// terminal error.
func (p *Poller) Poll(ctx context.Context, auth *DeviceAuthorization, codeVerifier string) (*TokenResponse, error) {
	if auth == nil || auth.DeviceCode == "" {
		return nil, errors.New("device authorization is required")
	}

	lifetime := DefaultDeviceCodeLifetime
	if auth.ExpiresIn > 0 {
		lifetime = time.Duration(auth.ExpiresIn) * time.Second
	}

	start := p.clock.Now()
	interval := InitialInterval(auth)
	attempt := 0

	for {
		if err := p.clock.Sleep(ctx, interval); err != nil {
			return nil, fmt.Errorf("device authorization cancelled: %w", err)
		}

		if p.clock.Now().Sub(start) > lifetime {
			logging.Debug("OAuth", "Device code expired after %d polls", attempt)
			return nil, ErrPollingTimeout
		}

		attempt++
		token, err := p.client.PollDeviceToken(ctx, auth.DeviceCode, codeVerifier)
		if err == nil {
			logging.Debug("OAuth", "Device authorization approved after %d polls", attempt)
			return token, nil
		}

		var slowDown *SlowDownError
		switch {
		case errors.Is(err, ErrAuthorizationPending):
			logging.Debug("OAuth", "Authorization pending (poll %d), next poll in %s", attempt, interval)
		case errors.As(err, &slowDown):
			interval = nextSlowDownInterval(interval)
			logging.Debug("OAuth", "Server asked to slow down (poll %d), interval now %s", attempt, interval)
		default:
			return nil, err
		}
	}
}
