// Package job runs the trading cycle on a schedule.
package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/service"
)

var ErrCycleRunning = errors.New("trading cycle already running")

type CycleRunner interface {
	Cycle(ctx context.Context) (service.CycleReport, error)
}

// ScanJob runs one trading cycle per interval. Cycles never overlap, whether
// they come from the ticker or from RunOnce.
type ScanJob struct {
	tracer   trace.Tracer
	runner   CycleRunner
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	last    time.Time
}

func NewScanJob(tracer trace.Tracer, runner CycleRunner, intervalSecs int, logger zerolog.Logger) *ScanJob {
	if intervalSecs <= 0 {
		intervalSecs = 3600
	}
	return &ScanJob{
		tracer:   tracer,
		runner:   runner,
		interval: time.Duration(intervalSecs) * time.Second,
		logger:   logger.With().Str("component", "scan-job").Logger(),
	}
}

// Start runs a cycle immediately and then on every tick. Blocks until ctx is
// cancelled.
func (j *ScanJob) Start(ctx context.Context) {
	j.logger.Info().Dur("interval", j.interval).Msg("scan job starting")
	j.tick(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("scan job stopped")
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *ScanJob) tick(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrCycleRunning) {
			j.logger.Warn().Msg("previous cycle still running, skipping tick")
			return
		}
		j.logger.Error().Err(err).Msg("trading cycle failed")
	}
}

// RunOnce runs a single cycle unless one is already in flight.
func (j *ScanJob) RunOnce(ctx context.Context) (service.CycleReport, error) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return service.CycleReport{}, ErrCycleRunning
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.last = time.Now()
		j.mu.Unlock()
	}()

	ctx, span := j.tracer.Start(ctx, "scan-job.run")
	defer span.End()
	return j.runner.Cycle(ctx)
}

// LastRun is the completion time of the latest cycle, zero before the first.
func (j *ScanJob) LastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}
