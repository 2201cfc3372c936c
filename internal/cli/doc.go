// Package cli holds the presentation helpers shared by the qwenauth
// commands: typed errors that map to process exit codes, classification of
// connection failures, status formatting and a progress spinner.
//
// Commands return *AuthRequiredError, *AuthExpiredError or *AuthFailedError
// so the root command can pick an exit code with errors.As without parsing
// messages.
package cli
