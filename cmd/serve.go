package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/airq-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	svAddr  string
	svQuiet bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reports, charts and predictions over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = svAddr
		}
		ac, err := buildContext(cmd, false)
		if err != nil {
			return err
		}
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, server.New(ac, server.Options{Quiet: svQuiet}), addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&svAddr, "addr", ":8080", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&svQuiet, "quiet", false, "disable request logging")
}
