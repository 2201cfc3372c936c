package oauth

import (
	"strings"
	"time"

	"qwenauth/internal/credentials"
)

// DeviceAuthorization is the server's answer to a device authorization
// request (RFC 8628 §3.2). It lives only for one login attempt.
type DeviceAuthorization struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	// ExpiresIn is the device code lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
	// Interval is the advertised polling interval in seconds (optional).
	Interval int `json:"interval,omitempty"`
}

// BrowserURL returns the URL the user should open, preferring the one with
// the user code embedded.
func (d *DeviceAuthorization) BrowserURL() string {
	if d.VerificationURIComplete != "" {
		return d.VerificationURIComplete
	}
	return d.VerificationURI
}

// TokenResponse is a successful token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
	ResourceURL string `json:"resource_url,omitempty"`
}

// Credential converts the response into a Credential, computing the expiry
// relative to now.
func (t *TokenResponse) Credential(now time.Time) *credentials.Credential {
	cred := &credentials.Credential{
		AccessToken:  strings.TrimSpace(t.AccessToken),
		RefreshToken: strings.TrimSpace(t.RefreshToken),
		TokenType:    strings.TrimSpace(t.TokenType),
		ResourceURL:  strings.TrimSpace(t.ResourceURL),
		Scope:        t.Scope,
	}
	if cred.TokenType == "" {
		cred.TokenType = credentials.DefaultTokenType
	}
	if t.ExpiresIn > 0 {
		cred.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return cred
}

// tokenEndpointResponse covers both the success and the error shape, since
// the token endpoint may answer either way on any status.
type tokenEndpointResponse struct {
	TokenResponse
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}
