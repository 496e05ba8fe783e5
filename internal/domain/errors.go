package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

var (
	ErrStoreNotBuilt      = errors.New("knowledge base has not been built")
	ErrStoreEmpty         = errors.New("knowledge base is empty")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrModelMismatch      = errors.New("embedding model mismatch")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrUnknownContextMode = errors.New("unknown context mode")
)

// ServiceError is a failure talking to a local embedding or generation service.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports connection failures and timeouts as ErrServiceUnavailable.
func (e *ServiceError) Is(target error) bool {
	if target != ErrServiceUnavailable {
		return false
	}
	return isTransportFailure(e.Err)
}

func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// ConfigError is a usage problem the user fixes by changing configuration
// or running a command, as described by Hint.
type ConfigError struct {
	Err  error
	Hint string
}

func (e *ConfigError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Hint)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BuildHint is shown whenever a query needs a built knowledge base.
const BuildHint = "run 'docqa build' to build the knowledge base first"

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
