package cmd

import (
	"fmt"
	"io"

	"qwenauth/internal/cli"

	"github.com/spf13/cobra"
)

var authQuiet bool

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Qwen credentials",
	Long: `Manage the Qwen OAuth credentials used by qwenauth.

Examples:
  qwenauth auth login      # Log in with the device flow
  qwenauth auth status     # Show what is stored (never the token itself)
  qwenauth auth refresh    # Force a token refresh
  qwenauth auth token      # Print a valid access token for scripts
  qwenauth auth logout     # Delete the stored credentials`,
}

// authPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func authPrint(w io.Writer, format string, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintf(w, format, args...)
	}
}

// authPrintln prints a line only if the --quiet flag is not set.
func authPrintln(w io.Writer, a ...interface{}) {
	if !authQuiet {
		fmt.Fprintln(w, a...)
	}
}

// authFailure wraps a login or refresh error for exit code 3. When the
// OAuth server could not be reached the message names the network problem
// instead of message.
func authFailure(err error, message, endpoint string) error {
	if connErr := cli.AsConnectionError(err, endpoint); connErr != nil {
		return &cli.AuthFailedError{
			Message: fmt.Sprintf("%v (%s)", connErr, connErr.Hint()),
			Reason:  connErr,
		}
	}
	return &cli.AuthFailedError{Message: message, Reason: err}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authTokenCmd)

	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
}
