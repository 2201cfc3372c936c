package app

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"qwenauth/internal/credentials"
	"qwenauth/internal/proxy"
	"qwenauth/pkg/logging"
)

// runServe runs the local proxy until ctx is done or SIGINT/SIGTERM
// arrives.
//
// Startup order:
//  1. Seed the runtime session from the credential file
//  2. Start the credential file watcher
//  3. Bind the listen address and notify systemd that the service is ready
//
// A missing credential file is not fatal: requests are answered with 401
// until the user logs in, and the watcher picks up the new file.
func runServe(ctx context.Context, cfg *Config, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cred, err := services.Store.Load(ctx)
	if err != nil {
		logging.Warn("Serve", "Could not read credentials: %v", err)
	}
	if cred == nil {
		logging.Warn("Serve", "No credentials found at %s. Run 'qwenauth auth login' to authenticate.", services.CredentialsPath)
	}
	services.Session.Set(cred)

	watcher := credentials.NewWatcher(credentials.WatcherConfig{
		Path:     services.CredentialsPath,
		OnChange: func() { reloadCredentials(ctx, services) },
	})
	if err := watcher.Start(); err != nil {
		logging.Warn("Serve", "Credential file watcher unavailable: %v", err)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			logging.Debug("Serve", "Error stopping watcher: %v", err)
		}
	}()

	handler := proxy.NewHandler(services.Resolver, services.Transport)
	server := proxy.NewServer(cfg.QwenAuthConfig.Listen, handler)
	if err := server.Listen(); err != nil {
		return err
	}

	notifySystemd(daemon.SdNotifyReady)
	logging.Info("Serve", "Qwen API available at http://%s/v1. Press Ctrl+C to stop.", server.Addr())

	err = server.Serve(ctx)
	notifySystemd(daemon.SdNotifyStopping)
	return err
}

// reloadCredentials reacts to an external change of the credential file.
func reloadCredentials(ctx context.Context, services *Services) {
	services.Resolver.Invalidate()

	cred, err := services.Store.Load(ctx)
	if err != nil {
		logging.Warn("Serve", "Credential file changed but could not be read: %v", err)
		return
	}
	if cred == nil {
		logging.Info("Serve", "Credentials were removed, clearing session")
		services.Session.Clear()
		return
	}
	logging.Debug("Serve", "Credential file changed, cache invalidated")
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Debug("Serve", "systemd notification %q failed: %v", state, err)
		return
	}
	if sent {
		logging.Debug("Serve", "Notified systemd: %s", state)
	}
}
