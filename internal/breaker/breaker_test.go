package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestNew_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb := New[int]("test-open", Settings{ConsecutiveFailures: 2, Interval: time.Minute, OpenTimeout: time.Minute}, nil)
	fail := func() (int, error) { return 0, errors.New("upstream down") }

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(fail); err == nil || IsOpen(err) {
			t.Fatalf("attempt %d: expected upstream error, got %v", i, err)
		}
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !IsOpen(err) {
		t.Fatalf("expected breaker to be open, got %v", err)
	}
	if cb.State() != gobreaker.StateOpen {
		t.Errorf("State() = %v, want open", cb.State())
	}
}

func TestNew_CancellationDoesNotTrip(t *testing.T) {
	t.Parallel()

	cb := New[int]("test-cancel", Settings{ConsecutiveFailures: 1, Interval: time.Minute, OpenTimeout: time.Minute}, nil)
	_, err := cb.Execute(func() (int, error) { return 0, context.Canceled })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
}
