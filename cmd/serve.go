// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"gridrows/internal/config"
	"gridrows/internal/dataset/pgds"
	"gridrows/internal/engine"
	gerrors "gridrows/internal/errors"
	"gridrows/internal/logging"
	"gridrows/internal/server"
)

var serveListen string

// serveCmd runs the HTTP API server. Actions come from the config file; each
// one names a table and a per-row SQL statement.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gridrows API server",
	Long: `The serve command starts the HTTP API server. It connects to PostgreSQL
using the stored DSN and exposes the actions declared in the config file.
Each action names a table and a per-row SQL statement; row columns and
submitted items are available to the statement as named arguments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return gerrors.Wrap(gerrors.ConfigInvalid, "loading configuration", err)
		}
		if len(cfg.Actions) == 0 {
			return gerrors.New(gerrors.ConfigInvalid, "no actions configured; declare at least one action in config.json")
		}

		connString, err := resolveDSN()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pool, err := pgxpool.New(ctx, connString)
		if err != nil {
			return gerrors.Wrap(gerrors.DBConnectFailed, "invalid connection string", err)
		}
		defer pool.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err != nil {
			return gerrors.Wrap(gerrors.DBConnectFailed, logging.Mask("connecting to "+connString), err)
		}

		actions := make([]server.Action, 0, len(cfg.Actions))
		for _, a := range cfg.Actions {
			if a.Name == "" || a.Table == "" || a.SQL == "" {
				return gerrors.New(gerrors.ConfigInvalid, fmt.Sprintf("action %q needs name, table and sql", a.Name))
			}
			actions = append(actions, server.Action{
				Name:                  a.Name,
				Dataset:               pgds.New(pool, a.Table),
				Fragment:              engine.SQLFragment(a.SQL),
				SuccessMessage:        a.SuccessMessage,
				ErrorMessage:          a.ErrorMessage,
				MessageTitle:          a.MessageTitle,
				EmptySelectionMessage: a.EmptySelectionMessage,
				ShowEmptyMessage:      a.ShowEmptyMessage,
			})
		}

		token := os.Getenv("GRIDROWS_TOKEN")
		logger := log.New(os.Stdout, "", log.LstdFlags)
		srv := server.New(Version, token, logger, actions...)

		listen := cfg.Listen
		if serveListen != "" {
			listen = serveListen
		}
		httpSrv := &http.Server{
			Addr:              listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		pterm.Info.Printf("gridrows %s listening on %s (%d actions)\n", Version, listen, len(actions))
		if token == "" {
			pterm.Warning.Println("GRIDROWS_TOKEN is not set; the server accepts unauthenticated requests")
		}
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Println("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
}
