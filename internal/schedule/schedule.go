// Package schedule runs periodic report total reconciliation.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/crashcalc/internal/logging"
	"github.com/zulandar/crashcalc/internal/metrics"
	"github.com/zulandar/crashcalc/internal/report"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Reconciler recomputes stored totals and records what it fixed.
type Reconciler struct {
	DB      *gorm.DB
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// Run reconciles all reports once.
func (r *Reconciler) Run(ctx context.Context) ([]report.Correction, error) {
	log := r.entry()
	corrections, err := report.ReconcileTotals(r.DB.WithContext(ctx))
	for _, c := range corrections {
		log.WithFields(logrus.Fields{
			"report_id":   c.ReportID,
			"stored":      c.Stored.String(),
			"computed":    c.Computed.String(),
			"parts_fixed": c.PartsFixed,
		}).Warn("report total corrected")
	}
	if r.Metrics != nil {
		r.Metrics.ReconcileCorrections.Add(float64(len(corrections)))
	}
	if err != nil {
		log.WithError(err).Error("reconcile failed")
		return corrections, err
	}
	log.WithField("corrections", len(corrections)).Info("reconcile finished")
	return corrections, nil
}

func (r *Reconciler) entry() *logrus.Entry {
	logger := r.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return logger.WithField("component", "reconcile")
}

// Scheduler runs a Reconciler on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
}

// New creates a scheduler running rec on spec, a 5-field cron expression.
// Overlapping runs are skipped.
func New(spec string, rec *Reconciler) (*Scheduler, error) {
	if rec == nil || rec.DB == nil {
		return nil, fmt.Errorf("schedule: reconciler with db is required")
	}
	log := rec.entry()
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)
	_, err := c.AddFunc(spec, func() {
		_, _ = rec.Run(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: parse %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running reconcile to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries reports how many jobs are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
