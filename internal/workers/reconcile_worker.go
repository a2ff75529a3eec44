// Package workers hosts the background jobs that run alongside the server.
package workers

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"wedding-pool-service/internal/app"
	"wedding-pool-service/internal/metrics"
)

// ReconcileWorker periodically re-derives participant totals from bet state.
// Settlement keeps totals consistent transactionally; this job exists to
// detect and repair drift (e.g. after manual data fixes).
type ReconcileWorker struct {
	events   *app.EventService
	interval time.Duration
	log      *zap.Logger
	sched    gocron.Scheduler
}

func NewReconcileWorker(events *app.EventService, interval time.Duration, log *zap.Logger) *ReconcileWorker {
	return &ReconcileWorker{events: events, interval: interval, log: log}
}

// Start schedules the job. Returns the underlying scheduler error, if any.
func (w *ReconcileWorker) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.sched = sched

	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			w.RunOnce(ctx)
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	w.log.Info("reconcile worker started", zap.Duration("interval", w.interval))
	return nil
}

// RunOnce executes a single reconciliation pass.
func (w *ReconcileWorker) RunOnce(ctx context.Context) {
	corrected, err := w.events.ReconcileTotals(ctx)
	if err != nil {
		w.log.Error("totals reconciliation failed", zap.Error(err))
		return
	}
	if corrected > 0 {
		metrics.TotalsCorrected.Add(float64(corrected))
		w.log.Warn("corrected drifted participant totals", zap.Int("rows", corrected))
	}
}

// Stop shuts the scheduler down.
func (w *ReconcileWorker) Stop() {
	if w.sched != nil {
		_ = w.sched.Shutdown()
	}
}
