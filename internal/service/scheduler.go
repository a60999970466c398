package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/aniladanir/lead-funnel/internal/metrics"
)

const (
	DefaultTickInterval = time.Minute
	DefaultBatchSize    = 50
)

// NudgeDriver is what the scheduler needs from the funnel.
type NudgeDriver interface {
	DueForNudge(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error)
	FireNudge(ctx context.Context, id int) error
}

type NudgeScheduler interface {
	Start()
	Stop(ctx context.Context) error
	Running() bool
	Tick(ctx context.Context) TickResult
}

type TickResult struct {
	Due     int
	Fired   int
	Skipped int
	Failed  int
}

type scheduler struct {
	driver       NudgeDriver
	logger       *slog.Logger
	tickInterval time.Duration
	batchSize    int
	now          func() time.Time

	mtx       sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
	cancel    context.CancelFunc
}

func NewNudgeScheduler(driver NudgeDriver, logger *slog.Logger, tickInterval time.Duration, batchSize int, clock func() time.Time) (NudgeScheduler, error) {
	if tickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %s", tickInterval)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &scheduler{
		driver:       driver,
		logger:       logger,
		tickInterval: tickInterval,
		batchSize:    batchSize,
		now:          clock,
	}, nil
}

// Start runs a tick immediately and then once per tick interval
func (s *scheduler) Start() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.isRunning {
		return
	}

	processCtx, processCtxCancel := context.WithCancel(context.Background())
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.cancel = processCtxCancel
	s.isRunning = true

	// run scheduler
	ticker := time.NewTicker(s.tickInterval)
	go func(t *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		defer t.Stop()

		// initial run
		s.Tick(processCtx)

		for {
			select {
			case <-t.C:
				s.Tick(processCtx)
			case <-stop:
				return
			}
		}
	}(ticker, s.stopChan, s.done)

	s.logger.Info("nudge scheduler started", "tickInterval", s.tickInterval.String(), "batchSize", s.batchSize)
}

// Stop prevents new ticks and waits for the running one to finish. When ctx
// ends first the running tick is abandoned and ctx's error is returned.
func (s *scheduler) Stop(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false
	close(s.stopChan)

	defer s.cancel()
	select {
	case <-s.done:
		s.logger.Info("nudge scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Error("nudge scheduler did not stop in time, abandoning running tick", "error", ctx.Err().Error())
		return ctx.Err()
	}
}

func (s *scheduler) Running() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.isRunning
}

// Tick nudges the due leads in order. A failing lead is logged and skipped;
// it never stops the remaining ones.
func (s *scheduler) Tick(ctx context.Context) (result TickResult) {
	start := time.Now()
	defer func() { metrics.ObserveTick(time.Since(start)) }()

	leads, err := s.driver.DueForNudge(ctx, s.now(), s.batchSize)
	if err != nil {
		s.logger.Error("failed to fetch due leads", "error", err.Error())
		return
	}
	result.Due = len(leads)

	for _, lead := range leads {
		if ctx.Err() != nil {
			break
		}

		leadLogger := s.logger.With(slog.Int("leadId", lead.ID))
		err := s.fire(ctx, lead.ID)
		switch {
		case err == nil:
			result.Fired++
		case errors.Is(err, domain.ErrNotDue), errors.Is(err, domain.ErrNudgeInProgress), errors.Is(err, domain.ErrLeadNotFound):
			result.Skipped++
			leadLogger.Debug("skipped nudge", "reason", err.Error())
		default:
			result.Failed++
			metrics.RecordNudgeFailure()
			leadLogger.Error("failed to nudge lead", "error", err.Error())
		}
	}

	if result.Due > 0 {
		s.logger.Info("nudge tick finished",
			"due", result.Due,
			"fired", result.Fired,
			"skipped", result.Skipped,
			"failed", result.Failed)
	}
	return
}

func (s *scheduler) fire(ctx context.Context, id int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while nudging lead %d: %v", id, r)
		}
	}()
	return s.driver.FireNudge(ctx, id)
}
