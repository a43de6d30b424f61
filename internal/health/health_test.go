package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func ok() Checker { return CheckerFunc(func(context.Context) error { return nil }) }

func failing(msg string) Checker {
	return CheckerFunc(func(context.Context) error { return errors.New(msg) })
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantStatus string
		wantReady  bool
	}{
		{"no dependencies", nil, StatusHealthy, true},
		{
			"all ok",
			[]Dependency{{Name: "redis", Checker: ok(), Critical: true}, {Name: "assistant", Checker: ok()}},
			StatusHealthy, true,
		},
		{
			"non-critical failure degrades",
			[]Dependency{{Name: "redis", Checker: ok(), Critical: true}, {Name: "assistant", Checker: failing("timeout")}},
			StatusDegraded, true,
		},
		{
			"critical failure",
			[]Dependency{{Name: "postgres", Checker: failing("refused"), Critical: true}, {Name: "assistant", Checker: failing("timeout")}},
			StatusUnhealthy, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Run(context.Background(), tt.deps, time.Second)
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", report.Status, tt.wantStatus)
			}
			if report.Ready() != tt.wantReady {
				t.Errorf("Ready() = %v, want %v", report.Ready(), tt.wantReady)
			}
			if len(report.Checks) != len(tt.deps) {
				t.Errorf("got %d checks, want %d", len(report.Checks), len(tt.deps))
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	slow := CheckerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	report := Run(context.Background(), []Dependency{{Name: "slow", Checker: slow, Critical: true}}, 50*time.Millisecond)
	if time.Since(start) > time.Second {
		t.Error("Run did not honour the per-check timeout")
	}
	if !errors.Is(report.Errors["slow"], context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", report.Errors["slow"])
	}
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestDBChecker(t *testing.T) {
	if err := NewDBChecker(fakePinger{}).HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cause := errors.New("connection refused")
	if err := NewDBChecker(fakePinger{err: cause}).HealthCheck(context.Background()); !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}
