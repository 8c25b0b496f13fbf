package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrInvalidConfig is returned when the configuration fails validation
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNotReady is returned when a bounded readiness wait runs out of time
	ErrNotReady = errors.New("not ready")

	// ErrMissingDeploymentAddresses is returned when the deploy step produced no addresses
	ErrMissingDeploymentAddresses = errors.New("deployment addresses not available")

	// ErrRuntimeUnavailable is returned when the container runtime cannot be reached
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
)

// NotReadyError names the container and path that never appeared
type NotReadyError struct {
	Container string
	Path      string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: %s not ready in container %s", ErrNotReady, e.Path, e.Container)
}

func (e *NotReadyError) Unwrap() error {
	return ErrNotReady
}

// RPCError is the error member of a JSON-RPC response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
