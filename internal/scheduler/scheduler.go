// Package scheduler 运行后台维护任务。
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Task is one periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler wraps gocron with zap logging.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler; jobs run in UTC.
func New(logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "scheduler"))

	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(gocronLogger{logger.Sugar()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{scheduler: s, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Add registers task to run every task.Interval. Overlapping runs are skipped.
func (s *Scheduler) Add(task Task) error {
	if task.Interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", task.Name)
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(task.Interval),
		gocron.NewTask(func() {
			start := time.Now()
			if err := task.Run(s.ctx); err != nil {
				s.logger.Error("task failed", zap.String("task", task.Name), zap.Error(err))
				return
			}
			s.logger.Debug("task finished", zap.String("task", task.Name), zap.Duration("took", time.Since(start)))
		}),
		gocron.WithName(task.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", task.Name, err)
	}

	s.logger.Info("task scheduled", zap.String("task", task.Name), zap.Duration("interval", task.Interval))
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.scheduler.Start()
	s.running = true
}

// Stop cancels in-flight tasks and waits for the scheduler to shut down.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	s.running = false
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// Jobs returns the names of scheduled jobs.
func (s *Scheduler) Jobs() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Name())
	}
	return names
}

type gocronLogger struct {
	sugar *zap.SugaredLogger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l gocronLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l gocronLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }
