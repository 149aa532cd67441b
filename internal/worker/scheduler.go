package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mindspero/mindspero/internal/pkg/logger"
)

// Task is a unit of scheduled work
type Task func(ctx context.Context) error

// Scheduler runs named tasks on cron specs. Overlapping runs of the same task
// are skipped and panics are recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	entries   map[string]cron.EntryID
	isRunning bool
}

// NewScheduler creates a scheduler accepting standard five-field specs and
// descriptors such as "@every 15s"
func NewScheduler(log *logger.Logger) *Scheduler {
	adapter := cronLogger{log: log}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers task under name
func (s *Scheduler) Add(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("task %q already scheduled", name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		if err := task(s.ctx); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"task": name,
			}).ErrorWithErr(err, "Scheduled task failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	s.entries[name] = id
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	s.cron.Start()
	s.isRunning = true

	s.logger.WithFields(map[string]interface{}{
		"tasks": len(s.entries),
	}).Info("Scheduler started")
	return nil
}

// Stop stops scheduling, cancels running tasks and waits for them until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if !c.log.Enabled("debug") {
		return
	}
	c.log.WithFields(pairs(keysAndValues)).Debug("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithFields(pairs(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
