package core

import (
	"errors"
	"fmt"
)

var ErrNoModelResponse = errors.New("model returned no choices")

// ConnectError reports an endpoint that could not be added to the registry.
// The registry is left exactly as it was before the attempt.
type ConnectError struct {
	Endpoint string
	Address  string
	Cause    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to server %s at %s: %v", e.Endpoint, e.Address, e.Cause)
}

func (e *ConnectError) Unwrap() error {
	return e.Cause
}

// ModelCallError is returned by Orchestrator.Process when the completion API
// fails. No partial answer accompanies it.
type ModelCallError struct {
	Round int
	Cause error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed in round %d: %v", e.Round, e.Cause)
}

func (e *ModelCallError) Unwrap() error {
	return e.Cause
}

// dispatchError never leaves the registry; Dispatch turns it into an error outcome.
type dispatchError struct {
	message string
}

func newDispatchError(format string, args ...any) *dispatchError {
	return &dispatchError{message: fmt.Sprintf(format, args...)}
}

func (e *dispatchError) Error() string {
	return e.message
}
