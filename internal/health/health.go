// Package health provides health check implementations for external dependencies.
package health

import (
	"context"
	"time"
)

// Checker reports whether a dependency is usable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// HealthCheck implements Checker.
func (f CheckerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Dependency is a named checker. A failing critical dependency makes the
// service not ready; a failing non-critical one only degrades it.
type Dependency struct {
	Name     string
	Checker  Checker
	Critical bool
}

// Status values reported per dependency and overall.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Report is the outcome of running all dependency checks.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	// Errors holds the failure message per dependency; not serialized so
	// internals do not leak to probes.
	Errors map[string]error `json:"-"`
}

// Ready reports whether no critical dependency failed.
func (r Report) Ready() bool {
	return r.Status != StatusUnhealthy
}

// Run checks every dependency concurrently, each bounded by timeout.
func Run(ctx context.Context, deps []Dependency, timeout time.Duration) Report {
	type result struct {
		dep Dependency
		err error
	}

	results := make(chan result, len(deps))
	for _, dep := range deps {
		go func(dep Dependency) {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results <- result{dep: dep, err: dep.Checker.HealthCheck(cctx)}
		}(dep)
	}

	report := Report{
		Status: StatusHealthy,
		Checks: make(map[string]string, len(deps)),
		Errors: make(map[string]error),
	}
	for range deps {
		res := <-results
		if res.err == nil {
			report.Checks[res.dep.Name] = StatusOK
			continue
		}
		report.Checks[res.dep.Name] = StatusError
		report.Errors[res.dep.Name] = res.err
		switch {
		case res.dep.Critical:
			report.Status = StatusUnhealthy
		case report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}
	return report
}
