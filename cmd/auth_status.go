package cmd

import (
	"fmt"
	"io"
	"time"

	"qwenauth/internal/cli"
	"qwenauth/internal/credentials"
	"qwenauth/internal/proxy"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored Qwen credentials",
	Long: `Show what the credential file holds: whether a token exists, when it
expires, whether it can be refreshed and which API host it is valid for.
Token values are never printed.`,
	RunE: runAuthStatus,
}

// statusNow is replaced in tests.
var statusNow = time.Now

func runAuthStatus(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	services := application.Services()
	out := cmd.OutOrStdout()

	cred, err := services.Store.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	fmt.Fprintf(out, "Credentials: %s\n", services.CredentialsPath)
	if cred == nil {
		fmt.Fprintf(out, "  Status:    %s\n", text.FgYellow.Sprint("Not logged in"))
		fmt.Fprintln(out, "             Run: qwenauth auth login")
		return nil
	}

	printCredentialStatus(out, cred, statusNow())
	return nil
}

func printCredentialStatus(out io.Writer, cred *credentials.Credential, now time.Time) {
	switch {
	case !cred.HasExpiry():
		fmt.Fprintf(out, "  Status:    %s\n", text.FgGreen.Sprint("Logged in"))
	case cred.ExpiredAt(now):
		fmt.Fprintf(out, "  Status:    %s\n", text.FgRed.Sprint("Token expired"))
	default:
		fmt.Fprintf(out, "  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	}

	fmt.Fprintf(out, "  Expires:   %s\n", cli.FormatExpiry(cred.Expiry, now))
	fmt.Fprintf(out, "  Refresh:   %s\n", cli.FormatPresence(cred.RefreshToken != ""))
	fmt.Fprintf(out, "  API:       %s\n", proxy.NormalizeResourceURL(cred.ResourceURL))
	if cred.Scope != "" {
		fmt.Fprintf(out, "  Scope:     %s\n", cred.Scope)
	}

	switch {
	case cred.ExpiredAt(now) && cred.RefreshToken != "":
		fmt.Fprintf(out, "\n%s\n", cli.FormatWarning("Access token expired. Run: qwenauth auth refresh"))
	case cred.ExpiredAt(now):
		fmt.Fprintf(out, "\n%s\n", cli.FormatWarning("Access token expired and cannot be refreshed. Run: qwenauth auth login"))
	case cred.RefreshToken == "":
		fmt.Fprintf(out, "\n%s\n", cli.FormatWarning("No refresh token; a new login is needed once the token expires"))
	}
}
