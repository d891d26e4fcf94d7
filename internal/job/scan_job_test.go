package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/service"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubRunner struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (s *stubRunner) Cycle(ctx context.Context) (service.CycleReport, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return service.CycleReport{Scanned: 3}, s.err
}

func TestNewScanJobInterval(t *testing.T) {
	j := NewScanJob(testTracer, &stubRunner{}, 2, zerolog.Nop())
	if j.interval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %v", j.interval)
	}
	if NewScanJob(testTracer, &stubRunner{}, 0, zerolog.Nop()).interval != time.Hour {
		t.Fatal("expected hourly default")
	}
}

func TestScanJobStartRunsImmediately(t *testing.T) {
	stub := &stubRunner{}
	j := NewScanJob(testTracer, stub, 3600, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return stub.calls.Load() > 0 })
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if j.LastRun().IsZero() {
		t.Fatal("last run not recorded")
	}
}

func TestRunOnceRefusesOverlap(t *testing.T) {
	stub := &stubRunner{release: make(chan struct{})}
	j := NewScanJob(testTracer, stub, 3600, zerolog.Nop())

	errc := make(chan error, 1)
	go func() {
		_, err := j.RunOnce(context.Background())
		errc <- err
	}()
	eventually(t, func() bool { return stub.calls.Load() == 1 })

	if _, err := j.RunOnce(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Fatalf("expected ErrCycleRunning, got %v", err)
	}
	close(stub.release)
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rep, err := j.RunOnce(context.Background())
	if err != nil || rep.Scanned != 3 {
		t.Fatalf("expected a fresh cycle after the first finished, got %+v %v", rep, err)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
