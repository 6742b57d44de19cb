package gateway

import "fmt"

// ValidationError rejects a request before it reaches the wire.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NetworkError means the backend could not be reached or the transport
// failed mid-request.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("could not reach the backend (%s): %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// BackendError carries a failure the backend itself reported.
type BackendError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend %s failed with status %d", e.Op, e.StatusCode)
}
