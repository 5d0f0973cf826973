package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"tankcore/pkg/health"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append([]ServiceOption{WithClock(ClockFunc(func() time.Time { return testNow }))}, opts...)
	svc, err := NewInMemoryService(NewDefaultRulesEngine(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustTank(t *testing.T, svc *Service, name, aquariumType string, gallons float64) Tank {
	t.Helper()
	tank, _, err := svc.CreateTank(context.Background(), Tank{Name: name, AquariumType: aquariumType, VolumeGallons: gallons})
	if err != nil {
		t.Fatalf("create tank: %v", err)
	}
	return tank
}

func ptr[T any](v T) *T { return &v }

type captureAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAudit) Record(_ context.Context, e AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *captureAudit) last(t *testing.T) AuditEntry {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		t.Fatalf("no audit entries recorded")
	}
	return c.entries[len(c.entries)-1]
}

type captureMetrics struct {
	mu     sync.Mutex
	calls  map[string][]bool
	scores map[string]int
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{calls: map[string][]bool{}, scores: map[string]int{}}
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op] = append(c.calls[op], success)
}

func (c *captureMetrics) ObserveHealth(_ context.Context, tankID string, score health.Score) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores[tankID] = score.Overall
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+msg)
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *captureLogger) has(line string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.lines {
		if got == line {
			return true
		}
	}
	return false
}
