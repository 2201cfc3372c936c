package cmd

import (
	"errors"
	"fmt"

	"qwenauth/internal/cli"
	"qwenauth/internal/token"

	"github.com/spf13/cobra"
)

// authTokenCmd represents the auth token command
var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a valid access token",
	Long: `Print a valid access token on stdout, refreshing it first if needed.
Intended for scripts; exits with code 2 when a new login is required.

Example:
  curl -H "Authorization: Bearer $(qwenauth auth token)" ...`,
	RunE: runAuthToken,
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	services := application.Services()

	tok, err := services.Resolver.TokenSource(cmd.Context()).Token()
	if errors.Is(err, token.ErrNoToken) {
		// An expired token that could not be refreshed is reported apart
		// from having no credentials at all.
		if cred, loadErr := services.Store.Load(cmd.Context()); loadErr == nil && cred != nil && cred.ExpiredAt(statusNow()) {
			return &cli.AuthExpiredError{CredentialsPath: services.CredentialsPath}
		}
		return &cli.AuthRequiredError{CredentialsPath: services.CredentialsPath}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
	return nil
}
