package health

import (
	"context"
	"fmt"
	"time"
)

// Probe is an arbitrary ctx-aware health predicate: nil means healthy, any
// error is reported as the unhealthy message.
type Probe func(ctx context.Context) error

// PredicateChecker wraps a Probe with a timeout, for conditions that have
// no natural numeric gauge (embedder not yet initialized, commit log not
// yet elected a leader).
type PredicateChecker struct {
	// Name identifies the condition being probed, for the Result message.
	Name string

	// Probe is the predicate to run. Required.
	Probe Probe

	// Timeout bounds how long Probe may run (default: 5 seconds).
	Timeout time.Duration
}

// NewPredicateChecker creates a PredicateChecker over probe.
func NewPredicateChecker(name string, probe Probe) *PredicateChecker {
	return &PredicateChecker{
		Name:    name,
		Probe:   probe,
		Timeout: 5 * time.Second,
	}
}

// Check runs the probe and reports the outcome.
func (p *PredicateChecker) Check(ctx context.Context) Result {
	start := time.Now()

	if p.Probe == nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("%s: no probe configured", p.Name),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	if err := p.Probe(probeCtx); err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("%s: %v", p.Name, err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("%s: ok", p.Name),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type.
func (p *PredicateChecker) Type() CheckType {
	return CheckTypePredicate
}

// WithTimeout sets the probe timeout.
func (p *PredicateChecker) WithTimeout(timeout time.Duration) *PredicateChecker {
	p.Timeout = timeout
	return p
}
