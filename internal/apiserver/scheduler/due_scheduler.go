// Package scheduler polls for scheduled messages and hands the due ones to
// the dispatch orchestrator.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Starter starts pending messages whose schedule has passed
type Starter interface {
	StartDue(ctx context.Context, limit int) (int, error)
}

// RetryPolicy slows polling down after consecutive failures
type RetryPolicy struct {
	BaseDelay     time.Duration `json:"baseDelay"`
	MaxDelay      time.Duration `json:"maxDelay"`
	BackoffFactor float64       `json:"backoffFactor"`
}

// Config holds configuration for the due scheduler
type Config struct {
	Starter  Starter
	Logger   *zap.Logger
	Interval time.Duration
	// BatchSize caps how many messages one tick starts; zero means no cap
	BatchSize   int
	RetryPolicy RetryPolicy
}

// Status is a snapshot of the scheduler
type Status struct {
	Running          bool       `json:"running"`
	Interval         string     `json:"interval"`
	LastRun          *time.Time `json:"lastRun,omitempty"`
	LastStarted      int        `json:"lastStarted"`
	TotalStarted     int        `json:"totalStarted"`
	LastError        string     `json:"lastError,omitempty"`
	ConsecutiveFails int        `json:"consecutiveFails"`
}

// DueScheduler periodically starts due messages
type DueScheduler struct {
	logger    *zap.Logger
	starter   Starter
	interval  time.Duration
	batchSize int
	retry     RetryPolicy

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	runningMutex sync.RWMutex
	running      bool

	statusMutex sync.RWMutex
	status      Status
}

// NewDueScheduler creates a new due scheduler
func NewDueScheduler(cfg Config) *DueScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.RetryPolicy.BaseDelay <= 0 {
		cfg.RetryPolicy = RetryPolicy{
			BaseDelay:     cfg.Interval,
			MaxDelay:      10 * time.Minute,
			BackoffFactor: 2.0,
		}
	}
	return &DueScheduler{
		logger:    cfg.Logger.Named("scheduler.due"),
		starter:   cfg.Starter,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		retry:     cfg.RetryPolicy,
		status:    Status{Interval: cfg.Interval.String()},
	}
}

// Start begins the polling loop
func (s *DueScheduler) Start() error {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()

	if s.running {
		return fmt.Errorf("due scheduler is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	s.running = true
	s.logger.Info("starting due scheduler", zap.Duration("interval", s.interval))

	go s.schedulerLoop()
	return nil
}

// Stop stops the polling loop and waits for the current tick to finish
func (s *DueScheduler) Stop() error {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("stopping due scheduler")
	s.cancel()
	<-s.done
	s.running = false
	return nil
}

// GetStatus returns scheduler status and statistics
func (s *DueScheduler) GetStatus() Status {
	s.runningMutex.RLock()
	running := s.running
	s.runningMutex.RUnlock()

	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	status := s.status
	status.Running = running
	return status
}

func (s *DueScheduler) schedulerLoop() {
	defer close(s.done)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("due scheduler loop stopped")
			return
		case <-timer.C:
			timer.Reset(s.Tick(s.ctx))
		}
	}
}

// Tick starts the messages due now and returns the delay until the next tick
func (s *DueScheduler) Tick(ctx context.Context) time.Duration {
	now := time.Now()
	started, err := s.starter.StartDue(ctx, s.batchSize)

	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()
	s.status.LastRun = &now
	s.status.LastStarted = started
	s.status.TotalStarted += started

	if err != nil {
		s.status.LastError = err.Error()
		s.status.ConsecutiveFails++
		delay := s.calculateBackoffDelay(s.status.ConsecutiveFails)
		s.logger.Error("failed to start due messages",
			zap.Int("started", started),
			zap.Int("attempt", s.status.ConsecutiveFails),
			zap.Duration("next_in", delay),
			zap.Error(err))
		return delay
	}

	s.status.LastError = ""
	s.status.ConsecutiveFails = 0
	if started > 0 {
		s.logger.Info("started due messages", zap.Int("count", started))
	}
	return s.interval
}

func (s *DueScheduler) calculateBackoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(s.retry.BaseDelay) * math.Pow(s.retry.BackoffFactor, float64(attempt-1)))
	if delay > s.retry.MaxDelay {
		delay = s.retry.MaxDelay
	}
	return delay
}
