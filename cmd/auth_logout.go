package cmd

import (
	"fmt"

	"qwenauth/internal/cli"

	"github.com/spf13/cobra"
)

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored Qwen credentials",
	Long: `Delete the credential file. The next API call, or the next run of any
tool sharing the file, will require a new login.`,
	RunE: runAuthLogout,
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	services := application.Services()

	if err := services.Store.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	services.Session.Clear()
	services.Resolver.Invalidate()

	authPrintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed credentials from "+services.CredentialsPath))
	return nil
}
