package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskcore/pkg/domain"

	"github.com/google/uuid"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

func TestClockFuncNowNilFallsBackToWallClock(t *testing.T) {
	got := ClockFunc(nil).Now()
	if got.IsZero() || got.Location() != time.UTC {
		t.Fatalf("expected non-zero UTC time, got %v", got)
	}
}

func TestClockFuncNowNormalisesToUTC(t *testing.T) {
	local := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	got := ClockFunc(func() time.Time { return local }).Now()
	if !got.Equal(local) || got.Location() != time.UTC {
		t.Fatalf("expected %v in UTC, got %v", local, got)
	}
}

func TestNoopObservabilityDoesNotPanic(_ *testing.T) {
	logger := noopLogger{}
	logger.Debug("debug", "key", "value")
	logger.Info("info", "key", "value")
	logger.Warn("warn", "key", "value")
	logger.Error("error", "key", "value")
	noopMetrics{}.Observe(context.Background(), "op", true, time.Millisecond)
	_, span := noopTracer{}.Start(context.Background(), "op")
	span.End(nil)
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	svc := NewInMemoryService(nil, WithClock(nil), WithLogger(nil), WithMetricsRecorder(nil), WithTracer(nil))
	if svc.clock == nil || svc.logger == nil || svc.metrics == nil || svc.tracer == nil {
		t.Fatalf("expected defaults to survive nil options")
	}
}

func TestServiceObservability(t *testing.T) {
	ctx := context.Background()
	logger := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc := newTestService(t, WithLogger(logger), WithMetricsRecorder(metrics), WithTracer(tracer))

	p := mustProject(t, svc, "Platform", "PLAT")
	if _, _, err := svc.UpdateProject(ctx, p.ID(), p.Token(), func(p *domain.Project, at time.Time) error {
		return p.Rename("Platform Team", at)
	}); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if _, err := svc.GetProject(ctx, p.ID()); err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if _, _, err := svc.UpdateLabel(ctx, uuid.New(), nil, func(*domain.Label, time.Time) error { return nil }); err == nil {
		t.Fatalf("expected update of missing label to fail")
	}

	for _, op := range []string{"create_project", "update_project", "get_project"} {
		if !metrics.has(op, true) {
			t.Fatalf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Fatalf("expected finished span for %s", op)
		}
	}
	if !metrics.has("update_label", false) || !tracer.has("update_label", false) {
		t.Fatalf("expected failed update_label to be observed")
	}
	if !logger.has("error", "operation failed") {
		t.Fatalf("expected failure to be logged")
	}
	if len(tracer.started) != len(tracer.ended) {
		t.Fatalf("every span must end: started %d ended %d", len(tracer.started), len(tracer.ended))
	}
	if !logger.has("debug", "operation committed") {
		t.Fatalf("expected commit debug log, got %s", fmt.Sprint(logger.entries))
	}
}
