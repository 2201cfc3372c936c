// Package logging provides the subsystem logger used throughout qwenauth.
//
// It is a thin layer over Go's standard slog package. Every entry carries a
// subsystem attribute so output from the resolver, the governor and the
// device flow can be told apart:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Governor", "dispatching request %s", id)
//	logging.Debug("Resolver", "cache hit, expires in %s", remaining)
//	logging.Error("CredentialStore", err, "failed to persist credentials")
//
// Debug output is off by default and is enabled by setting QWENAUTH_DEBUG
// (see DebugFromEnv) or by the --debug flag.
//
// # Audit Logging
//
// Credential lifecycle events (stored, refreshed, cleared) are logged with
// Audit at INFO level with an [AUDIT] prefix. Token values are never part of
// an audit event.
//
// All functions are safe for concurrent use.
package logging
