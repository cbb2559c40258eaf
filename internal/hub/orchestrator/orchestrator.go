// Package orchestrator runs backend calls under a per-agent timeout with at most
// one retry on transient failures.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/apperrors"
	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/metrics"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultDelay   = 500 * time.Millisecond
	maxAttempts    = 2
)

// Policy bounds the backend calls of one agent.
type Policy struct {
	Timeout  time.Duration
	Attempts uint // total attempts, clamped to [1, 2]
	Delay    time.Duration
}

// NewPolicy returns a policy with the given timeout, one retry and the default
// delay between attempts.
func NewPolicy(timeout time.Duration) Policy {
	return Policy{Timeout: timeout, Attempts: maxAttempts, Delay: DefaultDelay}
}

func (p Policy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

func (p Policy) attempts() uint {
	switch {
	case p.Attempts == 0 || p.Attempts > maxAttempts:
		return maxAttempts
	default:
		return p.Attempts
	}
}

// Bound returns ctx limited by the policy timeout. Agents that chain several
// backend calls bound the whole chain with it.
func (p Policy) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout())
}

// Call runs fn under the policy. A transient failure is retried once unless the
// context is done. The returned error is nil, an agent error already produced by
// fn, or one of agent.ErrTimeout, agent.ErrCanceled and agent.ErrBackend wrapping
// the cause.
func (p Policy) Call(ctx context.Context, backend string, fn func(ctx context.Context) error) error {
	callCtx, cancel := p.Bound(ctx)
	defer cancel()

	logger := log.Ctx(ctx).With().Str("backend", backend).Logger()
	start := time.Now()
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			err := fn(callCtx)
			if err == nil {
				return nil
			}
			if callCtx.Err() != nil || !IsTransient(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(callCtx),
		retry.Attempts(p.attempts()),
		retry.Delay(p.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			metrics.ObserveRetry(backend)
			logger.Warn().Err(err).Uint("attempt", n+1).Msg("retrying backend call")
		}),
	)
	if err == nil {
		return nil
	}

	err = classify(ctx, callCtx, backend, p.timeout(), err)
	metrics.ObserveFailure(backend, apperrors.CodeOf(err, agent.CodeBackendError))
	logger.Error().Err(err).
		Int("attempts", attempt).
		Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
		Msg("backend call failed")
	return err
}

func classify(parent, callCtx context.Context, backend string, timeout time.Duration, err error) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return agent.ErrCanceled.MsgErr(fmt.Sprintf("%s request canceled", backend), err)
	case errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return agent.ErrTimeout.MsgErr(fmt.Sprintf("%s did not answer within %s", backend, timeout), err)
	case errors.Is(err, agent.ErrAgent):
		return err
	default:
		return agent.ErrBackend.MsgErr(fmt.Sprintf("%s request failed: %s", backend, err.Error()), err)
	}
}

// Do is Call for functions returning a value.
func Do[T any](ctx context.Context, p Policy, backend string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Call(ctx, backend, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
