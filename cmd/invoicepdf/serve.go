package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lvillar/invoicepdf/mcp"
	"github.com/lvillar/invoicepdf/server"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			sc := a.cfg.Server

			// Keep the nil interface when there is no database.
			var docs server.DocumentSource
			if a.docs != nil {
				docs = a.docs
			}
			srv := &http.Server{
				Addr: sc.Addr,
				Handler: server.New(a.engine, docs, a.log, server.Config{
					RequestTimeout: sc.RequestTimeout,
					MaxBodyBytes:   sc.MaxBodyBytes,
				}).Routes(),
				ReadTimeout:  sc.ReadTimeout,
				WriteTimeout: sc.WriteTimeout,
			}

			errc := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", sc.Addr).Msg("HTTP server listening")
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
				a.log.Info().Msg("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.GracefulShutdown)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Error().Err(err).Msg("graceful shutdown failed")
				return srv.Close()
			}
			a.log.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newMCPCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the engine as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// stdout carries the protocol; logs go to stderr.
			a, err := newApp(ctx, root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			s := mcp.NewServer(
				mcp.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
				mcp.WithLogger(a.log),
				mcp.WithVersion(version),
			)
			mcp.RegisterDefaultTools(s, a.engine)
			mcp.RegisterDefaultResources(s)
			return s.Run(ctx)
		},
	}
}
