package holdings

import (
	"errors"
	"fmt"
)

// ErrAllSourcesFailed is returned when every registered source failed
var ErrAllSourcesFailed = errors.New("all sources failed")

// SourceFetchError is an adapter-level failure (page, network, file, parse)
type SourceFetchError struct {
	SourceID string
	Message  string
	Err      error
}

// NewSourceFetchError wraps err for sourceID
func NewSourceFetchError(sourceID, message string, err error) *SourceFetchError {
	return &SourceFetchError{SourceID: sourceID, Message: message, Err: err}
}

func (e *SourceFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s: %s: %v", e.SourceID, e.Message, e.Err)
	}
	return fmt.Sprintf("source %s: %s", e.SourceID, e.Message)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}
