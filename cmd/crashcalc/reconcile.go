package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/crashcalc/internal/db"
	"github.com/zulandar/crashcalc/internal/schedule"
)

func newReconcileCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute report totals from their parts",
		Long:  "Recomputes every part and report total once and rewrites the ones that drifted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to optional YAML config file")
	return cmd
}

func runReconcile(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	rec := &schedule.Reconciler{DB: gormDB}
	corrections, err := rec.Run(context.Background())
	for _, c := range corrections {
		fmt.Fprintf(out, "report %d: total %s -> %s (%d part totals fixed)\n",
			c.ReportID, c.Stored.String(), c.Computed.String(), c.PartsFixed)
	}
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	fmt.Fprintf(out, "Reconciled: %d report(s) corrected\n", len(corrections))
	return nil
}
