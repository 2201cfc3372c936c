package mock

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// Paths served by OAuthServer. They match the Qwen OAuth endpoints.
const (
	DeviceCodePath = "/api/v1/oauth2/device/code"
	TokenPath      = "/api/v1/oauth2/token"
)

const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// OAuthServerConfig configures the mock OAuth server behavior
type OAuthServerConfig struct {
	// ClientID is the expected OAuth client ID. Empty accepts any.
	ClientID string

	// TokenLifetime is how long access tokens remain valid (default 1h).
	TokenLifetime time.Duration

	// DeviceCodeLifetime is reported as expires_in for device codes
	// (default 15m).
	DeviceCodeLifetime time.Duration

	// Interval is the advertised polling interval in seconds (0 omits it).
	Interval int

	// PendingPolls is how many device token polls answer
	// authorization_pending before the code is approved.
	PendingPolls int

	// SlowDownPolls is how many of the pending polls answer slow_down
	// instead.
	SlowDownPolls int

	// Deny makes the device token endpoint answer access_denied once the
	// pending polls are used up.
	Deny bool

	// ResourceURL is returned with every token.
	ResourceURL string

	// KeepRefreshToken omits refresh_token from refresh responses, like
	// servers that do not rotate refresh tokens.
	KeepRefreshToken bool
}

// OAuthServer is a mock Qwen OAuth server implementing the device
// authorization grant with PKCE and the refresh token grant.
type OAuthServer struct {
	config     OAuthServerConfig
	httpServer *http.Server
	listener   net.Listener
	running    bool
	mu         sync.RWMutex

	// State tracking
	deviceCodes   map[string]*deviceCodeEntry // device_code -> entry
	refreshTokens map[string]bool             // valid refresh tokens
	refreshCalls  int
}

type deviceCodeEntry struct {
	UserCode      string
	CodeChallenge string
	Polls         int
	Redeemed      bool
}

// TokenResponse is the OAuth token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	ResourceURL  string `json:"resource_url,omitempty"`
}

// NewOAuthServer creates a new mock OAuth server
func NewOAuthServer(config OAuthServerConfig) *OAuthServer {
	if config.TokenLifetime == 0 {
		config.TokenLifetime = 1 * time.Hour
	}
	if config.DeviceCodeLifetime == 0 {
		config.DeviceCodeLifetime = 15 * time.Minute
	}
	return &OAuthServer{
		config:        config,
		deviceCodes:   make(map[string]*deviceCodeEntry),
		refreshTokens: make(map[string]bool),
	}
}

// Start starts the server on a random loopback port and returns its base
// URL.
func (s *OAuthServer) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.baseURL(), nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(DeviceCodePath, s.handleDeviceCode)
	mux.HandleFunc(TokenPath, s.handleToken)

	s.listener = listener
	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.running = true

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	return s.baseURL(), nil
}

// Stop stops the server.
func (s *OAuthServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// URL returns the base URL, or "" before Start.
func (s *OAuthServer) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL()
}

func (s *OAuthServer) baseURL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// IsRunning reports whether the server is serving.
func (s *OAuthServer) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// IssueRefreshToken registers a refresh token the server will accept, as
// if it had been issued by an earlier login.
func (s *OAuthServer) IssueRefreshToken() string {
	token := generateOpaqueToken()
	s.mu.Lock()
	s.refreshTokens[token] = true
	s.mu.Unlock()
	return token
}

// RevokeRefreshToken makes the server reject token from now on.
func (s *OAuthServer) RevokeRefreshToken(token string) {
	s.mu.Lock()
	delete(s.refreshTokens, token)
	s.mu.Unlock()
}

// RefreshCalls returns how many refresh token requests were received.
func (s *OAuthServer) RefreshCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshCalls
}

func (s *OAuthServer) handleDeviceCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !s.clientAllowed(r.FormValue("client_id")) {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "unknown client_id")
		return
	}

	challenge := r.FormValue("code_challenge")
	if challenge == "" || r.FormValue("code_challenge_method") != "S256" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "S256 code_challenge required")
		return
	}

	deviceCode := generateOpaqueToken()
	userCode := generateUserCode()

	s.mu.Lock()
	s.deviceCodes[deviceCode] = &deviceCodeEntry{UserCode: userCode, CodeChallenge: challenge}
	s.mu.Unlock()

	resp := map[string]any{
		"device_code":               deviceCode,
		"user_code":                 userCode,
		"verification_uri":          s.URL() + "/authorize",
		"verification_uri_complete": s.URL() + "/authorize?user_code=" + userCode,
		"expires_in":                int(s.config.DeviceCodeLifetime.Seconds()),
	}
	if s.config.Interval > 0 {
		resp["interval"] = s.config.Interval
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleToken handles token exchange requests
func (s *OAuthServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !s.clientAllowed(r.FormValue("client_id")) {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "unknown client_id")
		return
	}

	switch grantType := r.FormValue("grant_type"); grantType {
	case deviceCodeGrantType:
		s.handleDeviceToken(w, r)
	case "refresh_token":
		s.handleRefreshToken(w, r)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type",
			fmt.Sprintf("grant_type %s not supported", grantType))
	}
}

func (s *OAuthServer) handleDeviceToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entry, ok := s.deviceCodes[r.FormValue("device_code")]
	if !ok || entry.Redeemed {
		s.mu.Unlock()
		writeOAuthError(w, http.StatusBadRequest, "expired_token", "device code not found")
		return
	}
	entry.Polls++
	polls := entry.Polls
	s.mu.Unlock()

	if polls <= s.config.SlowDownPolls {
		writeOAuthError(w, http.StatusTooManyRequests, "slow_down", "polling too fast")
		return
	}
	if polls <= s.config.PendingPolls {
		writeOAuthError(w, http.StatusBadRequest, "authorization_pending", "user has not approved yet")
		return
	}
	if s.config.Deny {
		writeOAuthError(w, http.StatusBadRequest, "access_denied", "user denied the request")
		return
	}
	if !verifyPKCE(entry.CodeChallenge, r.FormValue("code_verifier")) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match")
		return
	}

	s.mu.Lock()
	entry.Redeemed = true
	s.mu.Unlock()

	s.writeTokens(w, true)
}

func (s *OAuthServer) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.FormValue("refresh_token")

	s.mu.Lock()
	s.refreshCalls++
	valid := s.refreshTokens[refreshToken]
	if valid && !s.config.KeepRefreshToken {
		delete(s.refreshTokens, refreshToken)
	}
	s.mu.Unlock()

	if !valid {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "refresh token not found")
		return
	}
	s.writeTokens(w, !s.config.KeepRefreshToken)
}

func (s *OAuthServer) writeTokens(w http.ResponseWriter, rotate bool) {
	resp := TokenResponse{
		AccessToken: generateOpaqueToken(),
		TokenType:   "Bearer",
		ExpiresIn:   int(s.config.TokenLifetime.Seconds()),
		ResourceURL: s.config.ResourceURL,
	}
	if rotate {
		resp.RefreshToken = s.IssueRefreshToken()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *OAuthServer) clientAllowed(clientID string) bool {
	return s.config.ClientID == "" || clientID == s.config.ClientID
}

// verifyPKCE verifies the PKCE code verifier against an S256 challenge
func verifyPKCE(challenge, verifier string) bool {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:]) == challenge
}

// generateOpaqueToken generates a random opaque token.
// Panics if crypto/rand fails, which should never happen in practice.
func generateOpaqueToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("crypto/rand failed: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func generateUserCode() string {
	const alphabet = "BCDFGHJKLMNPQRSTVWXZ"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("crypto/rand failed: %w", err))
	}
	code := make([]byte, 0, 9)
	for i, v := range b {
		if i == 4 {
			code = append(code, '-')
		}
		code = append(code, alphabet[int(v)%len(alphabet)])
	}
	return string(code)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
