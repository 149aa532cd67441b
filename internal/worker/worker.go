package worker

import (
	"context"
	"time"

	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/pkg/logger"
)

// GaugeRefresher republishes dashboard gauges
type GaugeRefresher interface {
	RefreshGauges(ctx context.Context) error
}

// Worker schedules document processing and gauge refreshes
type Worker struct {
	processor *Processor
	gauges    GaugeRefresher
	cfg       config.WorkerConfig
	logger    *logger.Logger
}

// New creates a worker. Either collaborator may be nil to skip its task.
func New(processor *Processor, gauges GaugeRefresher, cfg config.WorkerConfig, log *logger.Logger) *Worker {
	return &Worker{processor: processor, gauges: gauges, cfg: cfg, logger: log}
}

// Run schedules the tasks and blocks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	sched := NewScheduler(w.logger)

	if w.processor != nil {
		if err := sched.Add("process-documents", w.cfg.PollSchedule, func(ctx context.Context) error {
			_, err := w.processor.RunOnce(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	if w.gauges != nil {
		if err := sched.Add("refresh-gauges", w.cfg.MetricsRefreshSchedule, w.gauges.RefreshGauges); err != nil {
			return err
		}
		if err := w.gauges.RefreshGauges(ctx); err != nil {
			w.logger.ErrorWithErr(err, "Initial gauge refresh failed")
		}
	}

	if err := sched.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}
