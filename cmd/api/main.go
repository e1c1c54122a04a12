package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimeengine/internal/config"
	"github.com/hamed0406/uptimeengine/internal/httpapi"
	"github.com/hamed0406/uptimeengine/internal/scheduler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile, configPath string

	load := func() (config.Config, error) {
		if err := config.LoadDotEnv(envFile); err != nil {
			return config.Config{}, fmt.Errorf("env file: %w", err)
		}
		cfg := config.FromEnv()
		if configPath != "" {
			cfg.ConfigPath = configPath
		}
		return cfg, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tick loop and serve the status API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	tickCmd := &cobra.Command{
		Use:   "tick",
		Short: "Run a single tick and print the results as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			rep := a.engine.Tick(cmd.Context())
			closeErr := a.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			return closeErr
		},
	}

	root := &cobra.Command{
		Use:           "uptime-api",
		Short:         "Uptime monitor: scheduled checks, status store and status API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&configPath, "config", "", "monitor config file (overrides CONFIG_PATH)")
	root.AddCommand(serveCmd, tickCmd)
	return root
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	api := httpapi.NewServer(a.log.Named("http"), a.page, a.prober, a.metrics, httpapi.Options{
		PasswordProtection: a.file.Worker.PasswordProtection,
		PublicRPM:          cfg.PublicRPM,
		PublicBurst:        cfg.PublicBurst,
		RelayEnabled:       a.file.Worker.Relay.Enabled,
		RelayMaxTimeout:    a.file.Worker.Relay.MaxTimeout(),
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	runner := scheduler.NewRunner(a.log.Named("runner"), a.engine, cfg.TickInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runner.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.log.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.log.Info("shutdown", zap.Error(err))
	return err
}
