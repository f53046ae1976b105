package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestThresholdChecker_Healthy(t *testing.T) {
	checker := NewThresholdChecker("test_gauge", func(ctx context.Context) (float64, error) {
		return 0.2, nil
	}, 0.5)

	result := checker.Check(context.Background())
	if !result.Healthy {
		t.Errorf("expected healthy, got unhealthy: %s", result.Message)
	}
}

func TestThresholdChecker_OverMax(t *testing.T) {
	checker := NewThresholdChecker("test_gauge", func(ctx context.Context) (float64, error) {
		return 0.9, nil
	}, 0.5)

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Errorf("expected unhealthy, got healthy: %s", result.Message)
	}
}

func TestThresholdChecker_SampleError(t *testing.T) {
	checker := NewThresholdChecker("test_gauge", func(ctx context.Context) (float64, error) {
		return 0, errors.New("sampling failed")
	}, 0.5)

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Error("expected unhealthy when sampling fails")
	}
}

func TestThresholdChecker_Timeout(t *testing.T) {
	checker := NewThresholdChecker("test_gauge", func(ctx context.Context) (float64, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return 0, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}, 0.5).WithTimeout(10 * time.Millisecond)

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Error("expected unhealthy due to timeout")
	}
}

func TestThresholdChecker_Type(t *testing.T) {
	checker := NewThresholdChecker("g", func(ctx context.Context) (float64, error) { return 0, nil }, 1)
	if checker.Type() != CheckTypeThreshold {
		t.Errorf("expected type %s, got %s", CheckTypeThreshold, checker.Type())
	}
}

func TestPredicateChecker_Healthy(t *testing.T) {
	checker := NewPredicateChecker("test_probe", func(ctx context.Context) error { return nil })

	result := checker.Check(context.Background())
	if !result.Healthy {
		t.Errorf("expected healthy, got unhealthy: %s", result.Message)
	}
}

func TestPredicateChecker_ProbeError(t *testing.T) {
	checker := NewPredicateChecker("test_probe", func(ctx context.Context) error {
		return errors.New("not ready")
	})

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Error("expected unhealthy when probe returns an error")
	}
}

func TestPredicateChecker_NilProbe(t *testing.T) {
	checker := &PredicateChecker{Name: "no_probe"}

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Error("expected unhealthy with no probe configured")
	}
}

func TestPredicateChecker_ContextCancellation(t *testing.T) {
	checker := NewPredicateChecker("test_probe", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := checker.Check(ctx)
	if result.Healthy {
		t.Error("expected unhealthy due to cancelled context")
	}
}

func TestPredicateChecker_Type(t *testing.T) {
	checker := NewPredicateChecker("p", func(ctx context.Context) error { return nil })
	if checker.Type() != CheckTypePredicate {
		t.Errorf("expected type %s, got %s", CheckTypePredicate, checker.Type())
	}
}
