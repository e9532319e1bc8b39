package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func listenCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Only log inbound bot messages (long polling)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ignoreCanceled(a.listener.Poll(ctx, a.bot))
		},
	}
}
