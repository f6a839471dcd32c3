package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xiaocaoooo/screenshot-lambda/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the handler over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServer(ctx)
		},
	}
	cmd.Flags().StringP("port", "p", "8080", "HTTP listen port")
	if err := a.v.BindPFlag("port", cmd.Flags().Lookup("port")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind flag port: %v\n", err)
	}
	return cmd
}

func (a *app) runServer(ctx context.Context) error {
	cfg, log, err := a.load()
	if err != nil {
		return err
	}
	svc, err := a.newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	return server.New(cfg, svc, server.WithLogger(log), server.WithFs(a.fs)).Run(ctx)
}
