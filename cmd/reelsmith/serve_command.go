package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reelsmith/internal/httpapi"
	"reelsmith/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run history as a read-only JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.API.Bind = strings.TrimSpace(bind)
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			base := cmd.Context()
			if base == nil {
				base = context.Background()
			}
			signalCtx, cancel := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger.Info("history api listening",
				logging.String(logging.FieldEventType, "api_listen"),
				logging.String("bind", cfg.API.Bind),
				logging.String("ledger", store.Path()),
			)
			return httpapi.NewServer(cfg.API.Bind, store, logger).Run(signalCtx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to api.bind)")
	return cmd
}
