package model

import (
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrNotFound        = goerr.New("memory not found")
	ErrInvalidArgument = goerr.New("invalid argument")
	ErrMalformedRating = goerr.New("malformed importance rating")
	ErrGatewayFailure  = goerr.New("gateway failure")
)

// GatewayError is a failure reported by one of the external collaborators
// (embedding, completion or vector index). It matches ErrGatewayFailure with
// errors.Is while keeping the original error in the chain.
type GatewayError struct {
	Gateway string
	Err     error
}

// NewGatewayError wraps err as a failure of the named gateway
func NewGatewayError(gateway string, err error) error {
	return &GatewayError{Gateway: gateway, Err: err}
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return e.Gateway + ": " + ErrGatewayFailure.Error()
	}
	return e.Gateway + ": " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGatewayFailure
}
