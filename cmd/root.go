package cmd

import (
	"errors"
	"fmt"
	"os"

	"qwenauth/internal/app"
	"qwenauth/internal/cli"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates the user has to log in (again).
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the device flow or a refresh failed.
	ExitCodeAuthFailed = 3
)

// Global flags shared by every command.
var (
	rootDebug           bool
	rootConfigPath      string
	rootCredentialsPath string
)

// rootCmd represents the base command for qwenauth.
var rootCmd = &cobra.Command{
	Use:   "qwenauth",
	Short: "Authenticate to Qwen and govern calls to its API",
	Long: `qwenauth logs in to Qwen with the OAuth device flow, keeps the
access token fresh and serves a local proxy that authenticates, paces and
retries requests to the Qwen API on behalf of host applications.

Credentials are stored in ~/.qwen/oauth_creds.json, the same file the Qwen
Code CLI uses, so either tool can log in for the other.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	// Errors are printed by Execute.
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "qwenauth version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// newApplication bootstraps the application from the global flags.
// Replaced in tests.
var newApplication = func() (*app.Application, error) {
	cfg := app.NewConfig(rootDebug, rootConfigPath, rootCredentialsPath, rootCmd.Version)
	return app.NewApplication(cfg)
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging (env: QWENAUTH_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Configuration directory (default is $HOME/.config/qwenauth)")
	rootCmd.PersistentFlags().StringVar(&rootCredentialsPath, "credentials", "", "Credential file (default is $HOME/.qwen/oauth_creds.json)")
}
