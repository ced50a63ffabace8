package completion

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCompletion = errors.New("model returned an empty completion")
	ErrEmptyPrompt     = errors.New("prompt has no messages")
)

// GatewayError reports a failed call to the remote model. StatusCode is 0
// when no HTTP response was received.
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion gateway: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion gateway: %s", e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
