// Package degrade races upstream reads against a time budget and turns
// failures into explicit degraded results.
package degrade

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBudget leaves about two seconds of a ten second platform limit for
// serialization and the network.
const DefaultBudget = 8 * time.Second

// Reason explains why a result came from a fallback.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonTimeout       Reason = "timeout"
	ReasonUpstreamError Reason = "upstream_error"
	ReasonUnconfigured  Reason = "unconfigured"
)

// Result is either a live value or a degraded fallback with its reason.
type Result[T any] struct {
	Value    T
	Degraded bool
	Reason   Reason
	Err      error
}

// Live wraps a value obtained from the real operation.
func Live[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

// Fallback wraps a substitute value.
func Fallback[T any](value T, reason Reason, err error) Result[T] {
	return Result[T]{Value: value, Degraded: true, Reason: reason, Err: err}
}

// ErrTimeout is attached to results whose operation overran its budget.
var ErrTimeout = errors.New("operation exceeded time budget")

type outcome[T any] struct {
	value T
	err   error
}

// WithTimeout runs op with a context cancelled after budget. If op settles
// first its value or error is returned as-is (Err set, not degraded). If the
// budget expires first, fallback's value is returned with ReasonTimeout and
// op's context is cancelled; a late result is discarded.
func WithTimeout[T any](ctx context.Context, budget time.Duration, op func(context.Context) (T, error), fallback func() T) Result[T] {
	if budget <= 0 {
		budget = DefaultBudget
	}
	opCtx, cancel := context.WithCancel(ctx)
	done := make(chan outcome[T], 1)

	go func() {
		var out outcome[T]
		defer func() {
			if r := recover(); r != nil {
				out.err = fmt.Errorf("operation panicked: %v", r)
			}
			done <- out
		}()
		out.value, out.err = op(opCtx)
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case out := <-done:
		cancel()
		if out.err != nil {
			var zero T
			return Result[T]{Value: zero, Err: out.err}
		}
		return Live(out.value)
	case <-timer.C:
		cancel()
		return Fallback(fallback(), ReasonTimeout, ErrTimeout)
	case <-ctx.Done():
		cancel()
		return Fallback(fallback(), ReasonTimeout, ctx.Err())
	}
}

// Recover converts an operation error into a degraded result using
// fallback. Results that are live or already degraded pass through.
func Recover[T any](res Result[T], fallback func() T) Result[T] {
	if res.Degraded || res.Err == nil {
		return res
	}
	return Fallback(fallback(), ReasonUpstreamError, res.Err)
}

// Message is the advisory error string sent to clients, or "".
func (r Result[T]) Message() string {
	if !r.Degraded {
		return ""
	}
	switch r.Reason {
	case ReasonTimeout:
		return "Request timed out, showing fallback data"
	case ReasonUnconfigured:
		return "Data source is not configured, showing sample data"
	default:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "Data source unavailable"
	}
}
