package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	errTemp := errors.New("temporary")
	attempts := 0
	err := exec.Execute(context.Background(), "open", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) bool { return errors.Is(err, errTemp) })
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecuteStopsOnPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	errPermanent := errors.New("permanent")
	attempts := 0
	err := exec.Execute(context.Background(), "open", func(context.Context) error {
		attempts++
		return errPermanent
	}, nil)
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
}

func TestExecuteOpensCircuit(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg, nil)

	errDown := errors.New("down")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "open", func(context.Context) error { return errDown }, nil)
		require.ErrorIs(t, err, errDown)
	}
	err := exec.Execute(context.Background(), "open", func(context.Context) error {
		t.Fatal("operation must not run while the circuit is open")
		return nil
	}, nil)
	assert.True(t, IsCircuitOpen(err))
}

func TestExecuteHonoursCancelledContext(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := exec.Execute(ctx, "open", func(context.Context) error {
		called = true
		return nil
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
