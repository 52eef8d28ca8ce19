package health

import (
	"context"
	"sync"
	"time"
)

// Status is the reported health of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Component string        `json:"component"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Aggregator runs registered checkers in parallel and reports overall
// health.
type Aggregator struct {
	checkers []Checker
	timeout  time.Duration
}

// NewAggregator creates an aggregator. A zero timeout selects 10 seconds.
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{timeout: timeout}
}

// Register adds a checker. Not safe to call after CheckAll is in use.
func (a *Aggregator) Register(checker Checker) {
	a.checkers = append(a.checkers, checker)
}

// CheckAll runs every checker concurrently under the aggregator timeout.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make(map[string]CheckResult, len(a.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range a.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			result := c.Check(ctx)
			mu.Lock()
			results[c.Name()] = result
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	return results
}

// Healthy reports whether every component check passed.
func Healthy(results map[string]CheckResult) bool {
	for _, r := range results {
		if r.Status != StatusHealthy {
			return false
		}
	}
	return true
}

func resultFor(component string, start time.Time, err error) CheckResult {
	result := CheckResult{
		Component: component,
		Status:    StatusHealthy,
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}
	return result
}
