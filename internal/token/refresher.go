package token

import (
	"context"
	"errors"
	"fmt"

	"qwenauth/internal/clock"
	"qwenauth/internal/credentials"
	"qwenauth/internal/oauth"
	"qwenauth/pkg/logging"
)

// ErrNoRefreshToken is returned when a refresh is requested but neither
// source carries a refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

// RefreshClient performs the refresh token grant.
type RefreshClient interface {
	RefreshToken(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error)
}

// CredentialSaver persists refreshed credentials.
type CredentialSaver interface {
	Save(ctx context.Context, cred *credentials.Credential) error
}

// Refresher exchanges refresh tokens for new credentials and persists them.
type Refresher struct {
	client RefreshClient
	store  CredentialSaver
	clock  clock.Clock
}

// NewRefresher creates a Refresher. A nil clock means the wall clock.
func NewRefresher(client RefreshClient, store CredentialSaver, clk clock.Clock) *Refresher {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Refresher{client: client, store: store, clock: clk}
}

// Refresh tries the refresh candidates of rec in order and returns the
// credential from the first one the server accepts. The new credential is
// written to the store; a failed write is logged but does not fail the
// refresh.
func (r *Refresher) Refresh(ctx context.Context, rec credentials.Reconciled) (*credentials.Credential, error) {
	if len(rec.RefreshCandidates) == 0 {
		return nil, ErrNoRefreshToken
	}

	var errs []error
	for i, candidate := range rec.RefreshCandidates {
		resp, err := r.client.RefreshToken(ctx, candidate)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logging.Warn("TokenRefresher", "Refresh candidate %d of %d rejected: %v", i+1, len(rec.RefreshCandidates), err)
			errs = append(errs, err)
			continue
		}

		cred := resp.Credential(r.clock.Now())
		if cred.RefreshToken == "" {
			cred.RefreshToken = candidate
		}
		if cred.ResourceURL == "" {
			cred.ResourceURL = rec.ResourceURL
		}
		if cred.Scope == "" {
			cred.Scope = rec.Scope
		}

		if err := r.store.Save(ctx, cred); err != nil {
			logging.Error("TokenRefresher", err, "Failed to persist refreshed credentials")
		}

		logging.Audit(logging.AuditEvent{
			Action:  "token_refresh",
			Outcome: "success",
			Details: fmt.Sprintf("candidate=%d rotated=%t", i+1, cred.RefreshToken != candidate),
		})
		return cred, nil
	}

	logging.Audit(logging.AuditEvent{
		Action:  "token_refresh",
		Outcome: "failure",
		Details: fmt.Sprintf("candidates=%d", len(rec.RefreshCandidates)),
	})
	return nil, fmt.Errorf("all %d refresh tokens were rejected: %w", len(rec.RefreshCandidates), errors.Join(errs...))
}
