package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutConfig configures the per-attempt timeout stage.
type TimeoutConfig struct {
	// Timeout is the maximum duration for one attempt. Must be > 0.
	Timeout time.Duration
}

// Timeout bounds each attempt with a deadline context. The operation must
// honor context cancellation; a deadline expiry surfaces as ErrTimeout.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a timeout stage.
func NewTimeout(config TimeoutConfig) (*Timeout, error) {
	if config.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be > 0, got %v", ErrInvalidConfig, config.Timeout)
	}
	return &Timeout{config: config}, nil
}

// Execute runs the operation under a deadline derived from ctx.
func (t *Timeout) Execute(ctx context.Context, op Operation) error {
	attemptCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	err := op(attemptCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) &&
		attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return ErrTimeout
	}
	return err
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
