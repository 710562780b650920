package commands

import (
	"context"
	"errors"

	"github.com/desertthunder/ytplay/internal/protocol"
	"github.com/desertthunder/ytplay/internal/shared"
)

// classify maps an internal error to the taxonomy entry reported to clients.
func classify(err error) *protocol.Error {
	var perr *protocol.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &perr):
		return perr
	case errors.Is(err, context.Canceled):
		return protocol.ErrShuttingDown
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrTimeout
	case errors.Is(err, shared.ErrNothingLoaded):
		return protocol.ErrNothingLoaded
	case errors.Is(err, shared.ErrQueueExhausted):
		return protocol.ErrQueueExhausted
	case errors.Is(err, shared.ErrEngine), errors.Is(err, shared.ErrEngineClosed):
		return protocol.ErrEngineFailed
	case errors.Is(err, shared.ErrAPIRequest), errors.Is(err, shared.ErrServiceUnavailable):
		return protocol.ErrSearchFailed
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		return protocol.ErrInvalidArguments
	default:
		return protocol.ErrUnknown
	}
}
