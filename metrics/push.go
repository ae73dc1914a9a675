// metrics/push.go
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/cyterat/deepstate-map-data/models"
)

// RunStats is what a finished run reports to the Pushgateway.
type RunStats struct {
	Outcome  string
	Records  int
	Appended bool
	Finished time.Time
}

// Pusher sends batch-job gauges to a Prometheus Pushgateway.
type Pusher struct {
	url    string
	job    string
	client *http.Client
	logger *slog.Logger
}

func NewPusher(url, job string, logger *slog.Logger) *Pusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{url: url, job: job, client: &http.Client{Timeout: 10 * time.Second}, logger: logger}
}

// Push adds the run's gauges to the job's group. Metrics with other names in
// the group are kept, so a failed run does not erase the last success time.
func (p *Pusher) Push(ctx context.Context, stats RunStats) error {
	reg := prometheus.NewRegistry()

	outcome := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "deepstate_last_run_outcome",
		Help: "Outcome of the last run, 1 for the label that applies.",
	}, []string{"outcome"})
	for _, o := range []string{models.OutcomeAppended, models.OutcomeUnchanged, models.OutcomeSkipped, models.OutcomeFailed} {
		v := 0.0
		if o == stats.Outcome {
			v = 1
		}
		outcome.WithLabelValues(o).Set(v)
	}
	reg.MustRegister(outcome)

	succeeded := stats.Outcome == models.OutcomeAppended || stats.Outcome == models.OutcomeUnchanged
	if succeeded {
		records := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deepstate_archive_records",
			Help: "Number of records in the consolidated archive.",
		})
		records.Set(float64(stats.Records))

		appended := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deepstate_last_run_appended",
			Help: "1 if the last successful run appended a record, 0 otherwise.",
		})
		if stats.Appended {
			appended.Set(1)
		}

		lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deepstate_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		})
		lastSuccess.Set(float64(stats.Finished.Unix()))

		reg.MustRegister(records, appended, lastSuccess)
	}

	err := push.New(p.url, p.job).Gatherer(reg).Client(p.client).AddContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", p.url, err)
	}
	p.logger.Debug("pushed run metrics", "url", p.url, "job", p.job, "outcome", stats.Outcome)
	return nil
}
