package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/zulandar/crashcalc/internal/api"
	"github.com/zulandar/crashcalc/internal/db"
	"github.com/zulandar/crashcalc/internal/logging"
	"github.com/zulandar/crashcalc/internal/metrics"
	"github.com/zulandar/crashcalc/internal/notify"
	"github.com/zulandar/crashcalc/internal/schedule"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the crash report API server",
		Long: `Starts the HTTP API. Tables are migrated on startup. New operator reports
are posted to the enrichment webhook when N8N_WEBHOOK_URL is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to optional YAML config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	m := metrics.New()
	notifier := notify.New(notify.Options{
		Sinks:   notify.SinksFor(cfg.Webhook.URL, cfg.Slack.WebhookURL),
		Timeout: cfg.Webhook.Timeout,
		Logger:  log,
		Metrics: m,
	})
	if !notifier.Enabled() {
		log.Warn("N8N_WEBHOOK_URL not set, enrichment dispatch disabled")
	}

	if cfg.Reconcile.Schedule != "" {
		sched, err := schedule.New(cfg.Reconcile.Schedule, &schedule.Reconciler{
			DB:      gormDB,
			Logger:  log,
			Metrics: m,
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		log.WithField("schedule", cfg.Reconcile.Schedule).Info("reconcile scheduled")
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return api.Start(ctx, api.StartOpts{
		RouterOpts: api.RouterOpts{
			DB:          gormDB,
			Logger:      log,
			Notifier:    notifier,
			Metrics:     m,
			CORSOrigins: cfg.Server.CORSOrigins,
		},
		Addr:  cfg.Server.Addr(),
		Drain: notifier.Wait,
	})
}
