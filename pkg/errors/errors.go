package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnknownProtocol   = errors.New("unknown training protocol")
	ErrUnknownLoss       = errors.New("unknown loss")
	ErrUnknownOptimizer  = errors.New("unknown optimizer")
	ErrDimensionMismatch = errors.New("weight dimension mismatch")

	// ErrNotImplemented is returned by training paths that are declared but not built.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUnsupported is returned when a parameter server variant does not serve an operation.
	ErrUnsupported = errors.New("operation not supported by protocol")

	ErrServiceStopped = errors.New("parameter server stopped")
	ErrNoTrainingTime = errors.New("no completed training session")
)
