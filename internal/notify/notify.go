// Package notify sends new operator reports to the enrichment workflow.
// Delivery is best-effort: failures are logged and counted, never returned to
// the caller that triggered them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/crashcalc/internal/logging"
	"github.com/zulandar/crashcalc/internal/metrics"
	"github.com/zulandar/crashcalc/internal/models"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 30 * time.Second

// Payload is the report summary sent for enrichment. Parts are never included.
type Payload struct {
	IncidentID     string `json:"incident_id"`
	Driver         string `json:"driver"`
	Date           string `json:"date"`
	Chassis        string `json:"chassis"`
	Event          string `json:"event"`
	AccidentDamage string `json:"accident_damage"`
}

// PayloadFromReport builds the enrichment payload for r.
func PayloadFromReport(r *models.Report) Payload {
	p := Payload{
		Driver:         r.Driver,
		Date:           r.Date,
		Chassis:        r.Chassis,
		Event:          r.Event,
		AccidentDamage: r.AccidentDamage,
	}
	if r.IncidentID != nil {
		p.IncidentID = *r.IncidentID
	}
	return p
}

// Sink delivers a payload to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, p Payload) error
}

// Options configures a Notifier.
type Options struct {
	Sinks   []Sink
	Timeout time.Duration
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// Notifier fans a payload out to its sinks on background goroutines.
type Notifier struct {
	sinks   []Sink
	timeout time.Duration
	log     *logrus.Entry
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// New creates a Notifier. A nil Logger discards output; a zero Timeout uses
// DefaultTimeout.
func New(opts Options) *Notifier {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{
		sinks:   opts.Sinks,
		timeout: timeout,
		log:     logger.WithField("component", "notify"),
		metrics: opts.Metrics,
	}
}

// Enabled reports whether any sink is configured.
func (n *Notifier) Enabled() bool {
	return len(n.sinks) > 0
}

// Dispatch starts one delivery per sink and returns immediately.
func (n *Notifier) Dispatch(p Payload) {
	if !n.Enabled() {
		n.log.WithField("incident_id", p.IncidentID).Debug("no enrichment sinks configured, dispatch disabled")
		return
	}
	for _, s := range n.sinks {
		n.wg.Add(1)
		go n.send(s, p)
	}
}

// Wait blocks until every started delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) send(s Sink, p Payload) {
	defer n.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	log := n.log.WithFields(logrus.Fields{
		"sink":        s.Name(),
		"incident_id": p.IncidentID,
	})
	start := time.Now()
	err := s.Send(ctx, p)
	log = log.WithField("latency", time.Since(start).String())

	outcome := "success"
	if err != nil {
		outcome = "failure"
		log.WithError(err).Warn("enrichment notification failed")
	} else {
		log.Info("enrichment notification sent")
	}
	if n.metrics != nil {
		n.metrics.DispatchCounter.WithLabelValues(s.Name(), outcome).Inc()
	}
}
