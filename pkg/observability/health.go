package observability

import (
	"context"
	"slices"
	"sync"
	"time"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// worse reports whether s outranks other.
func (s HealthStatus) worse(other HealthStatus) bool {
	rank := map[HealthStatus]int{HealthStatusHealthy: 0, HealthStatusDegraded: 1, HealthStatusUnhealthy: 2}
	return rank[s] > rank[other]
}

type HealthCheckResult struct {
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

type HealthChecker func(ctx context.Context) HealthCheckResult

// DefaultCheckTimeout bounds each check so one hung dependency cannot stall
// the report.
const DefaultCheckTimeout = 3 * time.Second

// HealthRegistry runs named checks concurrently.
type HealthRegistry struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	timeout time.Duration
}

func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checks: map[string]HealthChecker{}, timeout: DefaultCheckTimeout}
}

// Register adds or replaces the check called name.
func (r *HealthRegistry) Register(name string, check HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

type OverallHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Checks    map[string]HealthCheckResult `json:"checks"`
}

// Names returns the check names in sorted order.
func (h OverallHealth) Names() []string {
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetOverallHealth runs every check and reports the worst status. A check
// that outlives the timeout reports its context error as unhealthy.
func (r *HealthRegistry) GetOverallHealth(ctx context.Context) OverallHealth {
	r.mu.RLock()
	checks := make(map[string]HealthChecker, len(r.checks))
	for name, c := range r.checks {
		checks[name] = c
	}
	timeout := r.timeout
	r.mu.RUnlock()

	out := OverallHealth{
		Status: HealthStatusHealthy,
		Checks: make(map[string]HealthCheckResult, len(checks)),
	}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range checks {
		name, check := name, check
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := run(ctx, check, timeout)

			mu.Lock()
			defer mu.Unlock()
			out.Checks[name] = res
			if res.Status.worse(out.Status) {
				out.Status = res.Status
			}
		}()
	}
	wg.Wait()
	out.Timestamp = time.Now()
	return out
}

func run(ctx context.Context, check HealthChecker, timeout time.Duration) HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan HealthCheckResult, 1)
	go func() { done <- check(ctx) }()

	var res HealthCheckResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = HealthCheckResult{Status: HealthStatusUnhealthy, Message: ctx.Err().Error()}
	}
	res.Duration = time.Since(start)
	res.Timestamp = time.Now()
	return res
}

// PingHealthChecker turns a ping into a check. failure is the status
// reported when ping fails: unhealthy for the task store, degraded for
// optional dependencies such as the event broker.
func PingHealthChecker(component string, failure HealthStatus, ping func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheckResult {
		if err := ping(ctx); err != nil {
			return HealthCheckResult{Status: failure, Message: component + " check failed: " + err.Error()}
		}
		return HealthCheckResult{Status: HealthStatusHealthy, Message: component + " healthy"}
	}
}
