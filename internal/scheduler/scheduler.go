package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"listingsportal/server/config"
	"listingsportal/server/internal/reconcile"
)

var ErrRunInProgress = errors.New("reconciliation already running")

// Runner executes one reconciliation cycle.
type Runner interface {
	Run(ctx context.Context) (*reconcile.Result, error)
}

// Scheduler runs the reconciliation job on a cron schedule, never more than one at a time
type Scheduler struct {
	runner       Runner
	schedule     cron.Schedule
	location     *time.Location
	runOnStartup bool
	logger       *logrus.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Held for the duration of a run
}

// NewScheduler creates a scheduler for cfg.Schedule evaluated in cfg.TimeZone.
func NewScheduler(runner Runner, cfg config.ReconcileConfig, logger *logrus.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule %q: %w", cfg.Schedule, err)
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", cfg.TimeZone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:       runner,
		schedule:     schedule,
		location:     location,
		runOnStartup: cfg.RunOnStartup,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		stopChan:     make(chan struct{}),
	}, nil
}

// Start begins the scheduled runs
func (s *Scheduler) Start() {
	if s.runOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.execute("startup")
		}()
	}

	s.wg.Add(1)
	go s.runScheduler()
}

// NextRun returns the first scheduled time after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	for {
		next := s.NextRun(time.Now())
		s.logger.WithField("next_run", next.Format(time.RFC3339)).Debug("Scheduled next reconciliation")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			// Runs in its own goroutine so ticks that fire during a long run are seen and skipped
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.execute("scheduled")
			}()
		}
	}
}

func (s *Scheduler) execute(trigger string) {
	_, err := s.RunNow(s.ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.WithField("trigger", trigger).Warn("Skipping reconciliation, previous run still in progress")
	case errors.Is(err, context.Canceled):
		s.logger.WithField("trigger", trigger).Info("Reconciliation cancelled by shutdown")
	case err != nil:
		s.logger.WithError(err).WithField("trigger", trigger).Error("Reconciliation failed")
	}
}

// RunNow runs one cycle immediately unless another is in flight, in which case
// it returns ErrRunInProgress.
func (s *Scheduler) RunNow(ctx context.Context) (*reconcile.Result, error) {
	if !s.jobMutex.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.jobMutex.Unlock()

	return s.runner.Run(ctx)
}

// Stop cancels pending work and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.cancel()
	})
	s.wg.Wait()
}
