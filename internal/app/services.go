package app

import (
	"fmt"

	"qwenauth/internal/clock"
	"qwenauth/internal/config"
	"qwenauth/internal/credentials"
	"qwenauth/internal/governor"
	"qwenauth/internal/oauth"
	"qwenauth/internal/token"
)

// Services holds all initialized components used by the application.
//
// The components are wired in dependency order: the credential store and
// session first, then the OAuth client, the token resolver built on both,
// and finally the request governor that consumes the resolver.
type Services struct {
	// Store is the persisted credential file.
	Store *credentials.Store

	// Session is the runtime credential view of this process. The resolver
	// keeps it current after every refresh.
	Session *credentials.Session

	// OAuthClient talks to the Qwen OAuth endpoints.
	OAuthClient *oauth.Client

	// Authorizer runs the device flow login.
	Authorizer *oauth.Authorizer

	// Resolver yields valid access tokens.
	Resolver *token.Resolver

	// Queue paces outbound API calls.
	Queue *governor.Queue

	// Transport authenticates, paces and retries outbound API calls.
	Transport *governor.Transport

	// CredentialsPath is the resolved credential file location.
	CredentialsPath string
}

// InitializeServices creates all components from the loaded configuration.
func InitializeServices(cfg *Config) (*Services, error) {
	qcfg := cfg.QwenAuthConfig
	if qcfg == nil {
		defaults := config.GetDefaultConfig()
		qcfg = &defaults
	}

	credentialsPath := qcfg.CredentialsPath
	if cfg.CredentialsPath != "" {
		credentialsPath = cfg.CredentialsPath
	}
	credentialsPath, err := credentials.ExpandPath(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials path: %w", err)
	}

	clk := clock.Real{}
	store := credentials.NewFileStore(credentialsPath)
	session := credentials.NewSession(nil)
	oauthClient := oauth.NewClient()

	resolver := token.NewResolver(token.ResolverConfig{
		Runtime:   session,
		Store:     store,
		Refresher: token.NewRefresher(oauthClient, store, clk),
		Clock:     clk,
		OnRefresh: session.Set,
	})

	governorCfg := governor.Config{
		MinInterval: qcfg.Governor.MinInterval,
		JitterMin:   qcfg.Governor.JitterMin,
		JitterMax:   qcfg.Governor.JitterMax,
	}
	if err := governorCfg.Validate(); err != nil {
		return nil, err
	}
	queue := governor.NewQueue(governorCfg, clk, nil)
	transport := governor.NewTransport(resolver, queue,
		governor.WithClock(clk),
		governor.WithVersion(cfg.Version),
	)

	return &Services{
		Store:           store,
		Session:         session,
		OAuthClient:     oauthClient,
		Authorizer:      oauth.NewAuthorizer(oauthClient, store, clk),
		Resolver:        resolver,
		Queue:           queue,
		Transport:       transport,
		CredentialsPath: credentialsPath,
	}, nil
}
