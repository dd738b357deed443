package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "nsmasterctl",
		Short: "CLI tool for the Northstar master server",
		Long: `nsmasterctl drives a master server over its HTTP interface.

It can list servers, run the player auth handshakes and send game server
heartbeats, which is enough to exercise a deployment end to end.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Master server URL (env: NSMASTERCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Session token file (env: NSMASTERCTL_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newServersCmd())
	rootCmd.AddCommand(newClientCmd())
	rootCmd.AddCommand(newServerCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr()).PrintError(err)
		os.Exit(1)
	}
}
