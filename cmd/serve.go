package cmd

import (
	"github.com/spf13/cobra"
)

// serveCmd starts the local proxy.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the governed Qwen API on a local address",
	Long: `Starts a local HTTP proxy for the Qwen API. Host applications send
OpenAI-compatible requests to it without credentials; qwenauth adds the
access token, paces requests and retries rate-limited or unauthorised
responses.

The listen address comes from config.yaml (default 127.0.0.1:8788) and can be
overridden with --listen. The credential file is watched, so logging in from
another terminal takes effect without a restart.

When run under systemd with Type=notify, readiness is reported once the
port is open.`,
	RunE: runServe,
}

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address, e.g. 127.0.0.1:8788")
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	if serveListen != "" {
		application.Config().QwenAuthConfig.Listen = serveListen
	}
	return application.Run(cmd.Context())
}
