package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Collaborator errors
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrEngine             = fmt.Errorf("media engine error")
	ErrEngineClosed       = fmt.Errorf("media engine closed")

	// Playback errors
	ErrNothingLoaded  = fmt.Errorf("nothing loaded")
	ErrQueueExhausted = fmt.Errorf("queue exhausted")

	// Cache errors
	ErrCacheMiss     = fmt.Errorf("cache miss")
	ErrTrackNotFound = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Interrupted wraps err, returned after ctx ended, as [ErrTimeout] when the deadline passed. A canceled ctx keeps
// [context.Canceled] in the chain and is not reported as a timeout.
func Interrupted(ctx context.Context, err error) error {
	if cerr := ctx.Err(); errors.Is(cerr, context.Canceled) {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", cerr, err)
	}
	if errors.Is(err, ErrTimeout) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTimeout, err)
}
