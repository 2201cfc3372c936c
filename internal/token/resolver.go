package token

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"qwenauth/internal/clock"
	"qwenauth/internal/credentials"
	"qwenauth/pkg/logging"
)

// ErrNoToken is returned by the oauth2.TokenSource adapter when no valid
// access token can be resolved.
var ErrNoToken = errors.New("no valid Qwen credentials; run 'qwenauth auth login'")

// AuthProvider supplies the host's runtime view of the credentials.
type AuthProvider interface {
	CurrentCredential(ctx context.Context) (*credentials.Credential, error)
}

// CredentialLoader reads the persisted credentials.
type CredentialLoader interface {
	Load(ctx context.Context) (*credentials.Credential, error)
}

// ResolverConfig holds the collaborators of a Resolver.
type ResolverConfig struct {
	// Runtime is the host's view. Optional.
	Runtime AuthProvider
	// Store is the persisted credential file.
	Store CredentialLoader
	// Refresher refreshes expiring tokens. Optional; without it tokens
	// are never refreshed.
	Refresher *Refresher
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// OnRefresh is called with every successfully refreshed credential,
	// typically to update the runtime view. Optional.
	OnRefresh func(cred *credentials.Credential)
}

// Resolver yields a valid access token for outbound calls, combining the
// runtime view, the credential file, the cache and the refresher.
type Resolver struct {
	runtime   AuthProvider
	store     CredentialLoader
	refresher *Refresher
	clock     clock.Clock
	onRefresh func(cred *credentials.Credential)

	cache *Cache
	group singleflight.Group
}

type resolution struct {
	token string
	ok    bool
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver(cfg ResolverConfig) *Resolver {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Resolver{
		runtime:   cfg.Runtime,
		store:     cfg.Store,
		refresher: cfg.Refresher,
		clock:     clk,
		onRefresh: cfg.OnRefresh,
		cache:     NewCache(clk),
	}
}

// GetValidAccessToken returns an access token usable right now. ok is false
// when no source holds a usable token and none could be refreshed; the
// caller must then ask the user to log in again.
//
// Concurrent callers share a single resolution. The shared work is not
// cancelled when the caller that started it goes away; a caller whose own
// ctx ends stops waiting and gets no token. A resolution started before
// Invalidate is never joined by callers arriving after it.
func (r *Resolver) GetValidAccessToken(ctx context.Context) (string, bool) {
	if token, ok := r.cache.Fresh(); ok {
		return token, true
	}

	gen := r.cache.Generation()
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan("resolve:"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		// Another resolution may have completed while we queued.
		if token, ok := r.cache.Fresh(); ok {
			return resolution{token: token, ok: true}, nil
		}
		return r.resolve(shared, gen), nil
	})

	select {
	case res := <-ch:
		out := res.Val.(resolution)
		return out.token, out.ok
	case <-ctx.Done():
		return "", false
	}
}

func (r *Resolver) resolve(ctx context.Context, gen uint64) resolution {
	now := r.clock.Now()
	rec := credentials.Reconcile(r.loadRuntime(ctx), r.loadFile(ctx))

	if len(rec.RefreshCandidates) > 0 && r.refresher != nil && needsRefresh(rec, now) {
		cred, err := r.refresher.Refresh(ctx, rec)
		if err == nil {
			r.accept(cred)
			return resolution{token: cred.AccessToken, ok: true}
		}
		logging.Warn("TokenResolver", "Refresh failed, falling back to current credentials: %v", err)
	}

	if rec.AccessToken == "" || (rec.HasExpiry() && rec.Expiry.Before(now)) {
		r.cache.Invalidate()
		logging.Debug("TokenResolver", "No valid access token available")
		return resolution{}
	}

	if !r.cache.SetIfGeneration(gen, rec.AccessToken, rec.Expiry, rec.ResourceURL) {
		logging.Debug("TokenResolver", "Cache invalidated during resolution, not caching result")
	}
	return resolution{token: rec.AccessToken, ok: true}
}

// needsRefresh reports whether the reconciled token is missing, has no
// known expiry, or is within RefreshLeadTime of expiring.
func needsRefresh(rec credentials.Reconciled, now time.Time) bool {
	if rec.AccessToken == "" || !rec.HasExpiry() {
		return true
	}
	return now.After(rec.Expiry.Add(-RefreshLeadTime))
}

// ForceRefresh refreshes regardless of the current expiry.
func (r *Resolver) ForceRefresh(ctx context.Context) (*credentials.Credential, error) {
	if r.refresher == nil {
		return nil, ErrNoRefreshToken
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		rec := credentials.Reconcile(r.loadRuntime(shared), r.loadFile(shared))
		cred, err := r.refresher.Refresh(shared, rec)
		if err != nil {
			return nil, err
		}
		r.accept(cred)
		return cred, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*credentials.Credential).Clone(), nil
}

// Invalidate drops the cached token so the next call re-reads the sources.
func (r *Resolver) Invalidate() {
	r.cache.Invalidate()
}

// Cached returns a snapshot of the cache.
func (r *Resolver) Cached() Entry {
	return r.cache.Snapshot()
}

// ResourceURL returns the API host of the resolved credentials, or "" when
// none is known.
func (r *Resolver) ResourceURL(ctx context.Context) string {
	if _, ok := r.GetValidAccessToken(ctx); !ok {
		return ""
	}
	return r.cache.Snapshot().ResourceURL
}

func (r *Resolver) accept(cred *credentials.Credential) {
	r.cache.Set(cred.AccessToken, cred.Expiry, cred.ResourceURL)
	if r.onRefresh != nil {
		r.onRefresh(cred.Clone())
	}
}

func (r *Resolver) loadRuntime(ctx context.Context) *credentials.Credential {
	if r.runtime == nil {
		return nil
	}
	cred, err := r.runtime.CurrentCredential(ctx)
	if err != nil {
		logging.Warn("TokenResolver", "Ignoring runtime credentials: %v", err)
		return nil
	}
	if cred == nil || cred.AccessToken == "" {
		return nil
	}
	return cred
}

func (r *Resolver) loadFile(ctx context.Context) *credentials.Credential {
	if r.store == nil {
		return nil
	}
	cred, err := r.store.Load(ctx)
	if err != nil {
		logging.Warn("TokenResolver", "Ignoring credential file: %v", err)
		return nil
	}
	return cred
}

// TokenSource adapts the resolver to oauth2.TokenSource. Tokens are
// resolved with ctx.
func (r *Resolver) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, resolver: r}
}

type tokenSource struct {
	ctx      context.Context
	resolver *Resolver
}

// Token implements oauth2.TokenSource.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	token, ok := s.resolver.GetValidAccessToken(s.ctx)
	if !ok {
		return nil, ErrNoToken
	}
	cred := &credentials.Credential{AccessToken: token, TokenType: credentials.DefaultTokenType}
	if entry := s.resolver.Cached(); entry.Token == token {
		cred.Expiry = entry.Expiry
		cred.ResourceURL = entry.ResourceURL
	}
	return cred.OAuth2Token(), nil
}
