package health

import (
	"context"
	"fmt"
	"time"
)

// Sample returns the current value of a numeric gauge the engine exposes
// (a bloom-filter miss rate, a compaction backlog depth, ...).
type Sample func(ctx context.Context) (float64, error)

// ThresholdChecker samples a numeric gauge and compares it against a max,
// generalizing the teacher's HTTP status-range check from a response code
// to any engine-internal gauge.
type ThresholdChecker struct {
	// Name identifies the gauge being sampled, for the Result message.
	Name string

	// Sample produces the current gauge value. Required.
	Sample Sample

	// Max is the highest value considered healthy.
	Max float64

	// Timeout bounds how long Sample may run (default: 5 seconds).
	Timeout time.Duration
}

// NewThresholdChecker creates a ThresholdChecker over sample, healthy while
// the sampled value stays at or below max.
func NewThresholdChecker(name string, sample Sample, max float64) *ThresholdChecker {
	return &ThresholdChecker{
		Name:    name,
		Sample:  sample,
		Max:     max,
		Timeout: 5 * time.Second,
	}
}

// Check samples the gauge and reports whether it's within range.
func (c *ThresholdChecker) Check(ctx context.Context) Result {
	start := time.Now()

	sampleCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	value, err := c.Sample(sampleCtx)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("%s: sampling failed: %v", c.Name, err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	healthy := value <= c.Max
	message := fmt.Sprintf("%s = %.4f (max %.4f)", c.Name, value, c.Max)

	return Result{
		Healthy:   healthy,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type.
func (c *ThresholdChecker) Type() CheckType {
	return CheckTypeThreshold
}

// WithTimeout sets the sampling timeout.
func (c *ThresholdChecker) WithTimeout(timeout time.Duration) *ThresholdChecker {
	c.Timeout = timeout
	return c
}
