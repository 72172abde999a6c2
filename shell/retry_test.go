package shell_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/circulation-go/inventory"
	"github.com/openshelf/circulation-go/shell"
)

func Test_Retry_SucceedsAfterGuardViolations(t *testing.T) {
	// arrange
	attempts := 0
	fn := func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return inventory.ErrGuardViolated
		}
		return nil
	}

	// act
	err := shell.RetryWithExponentialBackoff(
		context.Background(),
		fn,
		shell.WithBaseDelay(time.Millisecond),
		shell.WithJitterFactor(0),
	)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func Test_Retry_NonRetryableError_FailsFast(t *testing.T) {
	// arrange
	permanentErr := errors.New("bad input")
	attempts := 0
	fn := func(_ context.Context) error {
		attempts++
		return permanentErr
	}

	// act
	err := shell.RetryWithExponentialBackoff(context.Background(), fn, shell.WithBaseDelay(time.Millisecond))

	// assert
	assert.ErrorIs(t, err, permanentErr)
	assert.Equal(t, 1, attempts)
}

func Test_Retry_MaxAttemptsReached_ReturnsLastError(t *testing.T) {
	// arrange
	attempts := 0
	fn := func(_ context.Context) error {
		attempts++
		return inventory.ErrGuardViolated
	}

	// act
	err := shell.RetryWithExponentialBackoff(
		context.Background(),
		fn,
		shell.WithMaxAttempts(3),
		shell.WithBaseDelay(time.Millisecond),
		shell.WithJitterFactor(0),
	)

	// assert
	assert.ErrorIs(t, err, inventory.ErrGuardViolated)
	assert.Equal(t, 3, attempts)
}

func Test_Retry_ContextCancelled_StopsRetrying(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	fn := func(_ context.Context) error {
		attempts++
		cancel() // cancel while waiting for the next backoff
		return inventory.ErrGuardViolated
	}

	// act
	err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithBaseDelay(50*time.Millisecond))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func Test_Retry_OptionValidation(t *testing.T) {
	fn := func(_ context.Context) error { return nil }

	tests := []struct {
		name        string
		option      shell.RetryOption
		expectedErr error
	}{
		{name: "zero max attempts", option: shell.WithMaxAttempts(0), expectedErr: shell.ErrInvalidMaxAttempts},
		{name: "negative base delay", option: shell.WithBaseDelay(-time.Second), expectedErr: shell.ErrNegativeBaseDelay},
		{name: "jitter above one", option: shell.WithJitterFactor(1.5), expectedErr: shell.ErrInvalidJitterFactor},
		{name: "nil metrics collector", option: shell.WithMetrics(nil, "createLoan"), expectedErr: shell.ErrNilMetricsCollector},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			err := shell.RetryWithExponentialBackoff(context.Background(), fn, tc.option)

			// assert
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}
