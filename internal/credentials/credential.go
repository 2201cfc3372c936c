package credentials

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenType is used when a token response or file omits token_type.
const DefaultTokenType = "Bearer"

// Credential is one view of the user's OAuth credentials.
//
// SECURITY: AccessToken and RefreshToken are secrets. They are written to the
// credential file and sent to the OAuth server, and must never be logged.
type Credential struct {
	// AccessToken is the bearer token sent to the API.
	AccessToken string

	// RefreshToken is used to obtain new access tokens (optional).
	RefreshToken string

	// TokenType is typically "Bearer".
	TokenType string

	// Expiry is when AccessToken stops being valid. Zero means unknown.
	Expiry time.Time

	// ResourceURL is the API host the token is valid for (optional).
	ResourceURL string

	// Scope is the granted scope, space-separated (optional).
	Scope string
}

// record is the on-disk layout shared with other tools that read the file.
type record struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ResourceURL  string `json:"resource_url,omitempty"`
	ExpiryDate   *int64 `json:"expiry_date,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// MarshalJSON encodes the credential in the persisted record format, with
// the expiry as epoch milliseconds.
func (c Credential) MarshalJSON() ([]byte, error) {
	rec := record{
		AccessToken:  c.AccessToken,
		TokenType:    c.tokenType(),
		RefreshToken: c.RefreshToken,
		ResourceURL:  c.ResourceURL,
		Scope:        c.Scope,
	}
	if !c.Expiry.IsZero() {
		ms := c.Expiry.UnixMilli()
		rec.ExpiryDate = &ms
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes the persisted record format.
func (c *Credential) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*c = Credential{
		AccessToken:  strings.TrimSpace(rec.AccessToken),
		RefreshToken: strings.TrimSpace(rec.RefreshToken),
		TokenType:    strings.TrimSpace(rec.TokenType),
		ResourceURL:  strings.TrimSpace(rec.ResourceURL),
		Scope:        rec.Scope,
	}
	if rec.ExpiryDate != nil && *rec.ExpiryDate > 0 {
		c.Expiry = time.UnixMilli(*rec.ExpiryDate)
	}
	if c.TokenType == "" {
		c.TokenType = DefaultTokenType
	}
	return nil
}

func (c Credential) tokenType() string {
	if c.TokenType == "" {
		return DefaultTokenType
	}
	return c.TokenType
}

// HasExpiry reports whether the expiry is known.
func (c *Credential) HasExpiry() bool {
	return c != nil && !c.Expiry.IsZero()
}

// ExpiredAt reports whether the access token has a known expiry that lies
// strictly before now.
func (c *Credential) ExpiredAt(now time.Time) bool {
	return c.HasExpiry() && c.Expiry.Before(now)
}

// Clone returns a copy of c, or nil for a nil credential.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// OAuth2Token converts the credential into an oauth2.Token for callers built
// on golang.org/x/oauth2.
func (c *Credential) OAuth2Token() *oauth2.Token {
	if c == nil {
		return nil
	}
	token := &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.tokenType(),
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
	if c.ResourceURL != "" {
		token = token.WithExtra(map[string]interface{}{
			"resource_url": c.ResourceURL,
		})
	}
	return token
}
