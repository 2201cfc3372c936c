package cmd

import (
	"fmt"
	"io"

	"qwenauth/internal/cli"
	"qwenauth/internal/oauth"

	"github.com/spf13/cobra"
)

var loginNoBrowser bool

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Qwen with the device flow",
	Long: `Log in to Qwen using the OAuth 2.0 device authorization flow.

A verification URL and user code are printed and the browser is opened on
the verification page. Once you approve the request the credentials are
written to the credential file.

Examples:
  qwenauth auth login                  # Open the browser automatically
  qwenauth auth login --no-browser     # Only print the URL`,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Do not try to open a browser")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	services := application.Services()
	out := cmd.OutOrStdout()

	var progress *cli.Progress
	authorizer := services.Authorizer
	authorizer.OnDeviceCode = func(auth *oauth.DeviceAuthorization) {
		printDeviceCode(out, auth)
		if !loginNoBrowser {
			oauth.OpenBrowserBestEffort(auth.BrowserURL())
		}
		progress = cli.StartProgress(cmd.ErrOrStderr(), "Waiting for authorization...", authQuiet)
	}

	cred, err := authorizer.Login(cmd.Context())
	progress.Stop()
	if err != nil {
		return authFailure(err, oauth.LoginFailureMessage(err), services.OAuthClient.BaseURL())
	}

	services.Session.Set(cred)
	authPrintln(out, cli.FormatSuccess("Logged in to Qwen. Credentials saved to "+services.CredentialsPath))
	return nil
}

// printDeviceCode shows the user where to approve the login. It is printed
// even in quiet mode since the login cannot complete without it.
func printDeviceCode(w io.Writer, auth *oauth.DeviceAuthorization) {
	if auth == nil {
		return
	}
	fmt.Fprintf(w, "To log in, open:\n  %s\n", auth.BrowserURL())
	if auth.UserCode != "" {
		fmt.Fprintf(w, "and confirm the code: %s\n\n", auth.UserCode)
	}
}
