package oauth

import (
	"golang.org/x/oauth2"
)

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) pair.
type PKCEChallenge struct {
	// CodeVerifier is 32 random bytes, base64url-encoded without padding.
	// It is kept secret and only sent with the token request.
	CodeVerifier string

	// CodeChallenge is base64url(SHA-256(CodeVerifier)) without padding.
	// It is sent with the device authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// GeneratePKCE generates a new PKCE code verifier and S256 challenge.
// The verifier is drawn from crypto/rand, so successive calls are
// unpredictable.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifier := oauth2.GenerateVerifier()
	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: "S256",
	}, nil
}
