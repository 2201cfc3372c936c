// Package app wires the qwenauth components together and runs the local
// proxy.
//
// # Bootstrap
//
// NewApplication performs the complete startup sequence:
//
//  1. Configures logging from the --debug flag and QWENAUTH_DEBUG
//  2. Loads config.yaml (defaults when absent)
//  3. Creates the credential store, runtime session, OAuth client, token
//     resolver and request governor
//
// CLI commands use Services directly; the serve command calls Run.
//
// # Serve mode
//
// Run seeds the runtime session from the credential file, watches the file
// for changes made by other tools, and serves the governed API on the
// configured listen address until SIGINT or SIGTERM. When started by
// systemd with Type=notify, readiness and shutdown are reported through
// sd_notify.
//
// Example:
//
//	cfg := app.NewConfig(false, "", "", version)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
