package cmd

import (
	"errors"

	"qwenauth/internal/cli"
	"qwenauth/internal/token"

	"github.com/spf13/cobra"
)

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a token refresh",
	Long: `Exchange the stored refresh token for a new access token, even if the
current one is still valid. Useful when the API keeps rejecting a token
that looks fine locally.`,
	RunE: runAuthRefresh,
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	services := application.Services()
	out := cmd.OutOrStdout()

	authPrintln(out, "Refreshing Qwen access token...")
	cred, err := services.Resolver.ForceRefresh(cmd.Context())
	if err != nil {
		if errors.Is(err, token.ErrNoRefreshToken) {
			return &cli.AuthRequiredError{CredentialsPath: services.CredentialsPath}
		}
		return authFailure(err, "token refresh was rejected", services.OAuthClient.BaseURL())
	}

	authPrintln(out, cli.FormatSuccess("Token refreshed successfully."))
	authPrint(out, "  Expires:   %s\n", cli.FormatExpiry(cred.Expiry, statusNow()))
	return nil
}
