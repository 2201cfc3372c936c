package oauth

import (
	"context"
	"fmt"

	"qwenauth/internal/clock"
	"qwenauth/internal/credentials"
	"qwenauth/pkg/logging"
)

// DeviceAuthorizer is the subset of Client the login flow needs.
type DeviceAuthorizer interface {
	DeviceTokenPoller
	RequestDeviceAuthorization(ctx context.Context, codeChallenge string) (*DeviceAuthorization, error)
}

// CredentialSaver persists credentials obtained by a login.
type CredentialSaver interface {
	Save(ctx context.Context, cred *credentials.Credential) error
}

// Authorizer runs a complete device flow login.
type Authorizer struct {
	client DeviceAuthorizer
	poller *Poller
	store  CredentialSaver
	clock  clock.Clock

	// OnDeviceCode is called once the user code is known, before polling
	// starts. It must not block. Typically it prints the code and opens
	// the browser.
	OnDeviceCode func(auth *DeviceAuthorization)
}

// NewAuthorizer creates an Authorizer. A nil clock means the wall clock.
func NewAuthorizer(client DeviceAuthorizer, store CredentialSaver, clk clock.Clock) *Authorizer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Authorizer{
		client: client,
		poller: NewPoller(client, clk),
		store:  store,
		clock:  clk,
	}
}

// Login runs the device flow to completion and persists the result.
// The PKCE pair and device code live only for the duration of the call.
func (a *Authorizer) Login(ctx context.Context) (*credentials.Credential, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE: %w", err)
	}

	auth, err := a.client.RequestDeviceAuthorization(ctx, pkce.CodeChallenge)
	if err != nil {
		return nil, err
	}

	if a.OnDeviceCode != nil {
		a.OnDeviceCode(auth)
	}

	token, err := a.poller.Poll(ctx, auth, pkce.CodeVerifier)
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "device_login",
			Outcome: "failure",
			Details: err.Error(),
		})
		return nil, err
	}

	cred := token.Credential(a.clock.Now())
	if err := a.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	logging.Audit(logging.AuditEvent{
		Action:  "device_login",
		Outcome: "success",
		Details: fmt.Sprintf("has_refresh_token=%t", cred.RefreshToken != ""),
	})
	return cred, nil
}
