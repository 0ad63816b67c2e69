package llm

import (
	"errors"
	"fmt"

	flowerrors "github.com/randalmurphal/feedgraph/pkg/flowgraph/errors"
)

var (
	// ErrEmptyResponse indicates the model returned no content.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrUnknownProvider indicates no factory is registered for a provider.
	ErrUnknownProvider = errors.New("unknown provider")
)

// InvocationError reports a failed model call.
type InvocationError struct {
	Provider  string
	Op        string
	Err       error
	Retryable bool
}

// NewError creates an InvocationError.
func NewError(provider, op string, err error, retryable bool) *InvocationError {
	return &InvocationError{Provider: provider, Op: op, Err: err, Retryable: retryable}
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("llm %s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Category implements errors.Categorizer so retries key off Retryable.
func (e *InvocationError) Category() flowerrors.Category {
	if e.Retryable {
		return flowerrors.CategoryTransient
	}
	return flowerrors.CategoryPermanent
}

// ParseError reports model output that could not be read as JSON, even
// after repair.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Category implements errors.Categorizer.
func (e *ParseError) Category() flowerrors.Category {
	return flowerrors.CategoryMalformed
}
