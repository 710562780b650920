package protocol

import "fmt"

// Error is one entry of the fixed error taxonomy sent to clients.
type Error struct {
	Code string
	Text string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Text)
}

// Is matches errors by code so wrapped copies compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNoQueryProvided  = &Error{Code: "NO_QUERY_PROVIDED", Text: "No search query was provided"}
	ErrNoSongProvided   = &Error{Code: "NO_SONG_PROVIDED", Text: "No song was provided"}
	ErrCommandNotFound  = &Error{Code: "COMMAND_NOT_FOUND", Text: "Command not found"}
	ErrUnknown          = &Error{Code: "UNKNOWN", Text: "An unknown error occured"}
	ErrInvalidArguments = &Error{Code: "INVALID_ARGUMENTS", Text: "Command arguments are malformed"}
	ErrNothingLoaded    = &Error{Code: "NOTHING_LOADED", Text: "No song is loaded"}
	ErrQueueExhausted   = &Error{Code: "QUEUE_EXHAUSTED", Text: "No more songs in the queue"}
	ErrSearchFailed     = &Error{Code: "SEARCH_FAILED", Text: "Search provider failed"}
	ErrEngineFailed     = &Error{Code: "ENGINE_FAILED", Text: "Media engine rejected the command"}
	ErrTimeout          = &Error{Code: "TIMEOUT", Text: "The operation timed out"}
	ErrShuttingDown     = &Error{Code: "SHUTTING_DOWN", Text: "The server is shutting down"}
)

// Taxonomy lists every error the server can report, in documentation order.
var Taxonomy = []*Error{
	ErrNoQueryProvided,
	ErrNoSongProvided,
	ErrCommandNotFound,
	ErrUnknown,
	ErrInvalidArguments,
	ErrNothingLoaded,
	ErrQueueExhausted,
	ErrSearchFailed,
	ErrEngineFailed,
	ErrTimeout,
	ErrShuttingDown,
}
