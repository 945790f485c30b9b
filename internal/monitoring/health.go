package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Failure summarises the failing probes, or returns nil when the report is healthy.
func (r HealthReport) Failure() error {
	if r.Success {
		return nil
	}
	var parts []string
	for _, check := range r.Checks {
		if check.Status == StatusUp {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s: %s", check.Component, check.Status, check.Details))
	}
	return errors.New(strings.Join(parts, "; "))
}

// Check encapsulates a single dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewCheck constructs a health check with the provided name and function.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{
				Component: name,
				Status:    StatusDown,
				Details:   "probe not implemented",
			}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager runs the readiness probes backing the health endpoint.
type HealthManager struct {
	checks []Check
}

// NewHealthManager constructs a manager with the given checks.
func NewHealthManager(checks ...Check) *HealthManager {
	m := &HealthManager{}
	for _, check := range checks {
		m.Register(check)
	}
	return m
}

// Register appends a probe. Unnamed probes are ignored.
func (m *HealthManager) Register(check Check) {
	if check.Name == "" {
		return
	}
	m.checks = append(m.checks, check)
}

// Evaluate executes every probe. A down probe fails the report; a degraded one only when
// nothing is down.
func (m *HealthManager) Evaluate(ctx context.Context) HealthReport {
	report := HealthReport{
		Success: true,
		Status:  StatusUp,
		Checks:  make([]ProbeResult, 0, len(m.checks)),
	}

	for _, check := range m.checks {
		result := runCheck(ctx, check)
		report.Checks = append(report.Checks, result)

		switch result.Status {
		case StatusDown:
			report.Success = false
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status != StatusDown {
				report.Success = false
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			details := "panic recovered"
			switch v := rec.(type) {
			case string:
				details = v
			case error:
				details = v.Error()
			}
			result = ProbeResult{
				Component: check.Name,
				Status:    StatusDown,
				Details:   details,
				Duration:  time.Since(start),
			}
		}
	}()

	result = check.Run(ctx)
	if result.Status == "" {
		result.Status = StatusDown
	}
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	result.Component = check.Name
	return result
}

// ResultFromError converts an error into a ProbeResult. Timeouts count as degraded.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}

	return ProbeResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
