package main

import (
	"github.com/spf13/cobra"

	"dubline/internal/api"
	"dubline/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bind") {
				cfg.API.Bind = bind
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			serveCtx, stop := signalContext(cmd.Context())
			defer stop()

			rt, err := buildRuntime(serveCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			srv := api.NewServer(cfg, rt.pipeline, rt.ledger, rt.metrics.Handler(), logger)
			if err := srv.Start(serveCtx); err != nil {
				return err
			}
			<-serveCtx.Done()
			logger.Info("shutting down; waiting for in-flight runs", logging.String("address", srv.Addr()))
			srv.Wait()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default: api.bind)")
	return cmd
}
