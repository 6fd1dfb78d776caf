package ierr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder composes an error with a user facing hint, reportable details
// and a marker. Terminate the chain with Mark.
type ErrorBuilder struct {
	err     error
	details map[string]interface{}
}

// NewError starts a builder from a new error message
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepth(1, msg)}
}

// NewErrorf starts a builder from a formatted error message
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepthf(1, format, args...)}
}

// WithError starts a builder that wraps an existing error
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.NewWithDepth(1, "unknown error")
	}
	return &ErrorBuilder{err: err}
}

// WithMessage wraps the error with additional context
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WrapWithDepth(1, b.err, msg)
	return b
}

// WithHint attaches a message that is safe to show to API consumers
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf attaches a formatted hint
func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	return b.WithHint(fmt.Sprintf(format, args...))
}

// WithReportableDetails attaches structured details that may be returned in
// API error responses
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	if b.details == nil {
		b.details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		b.details[k] = v
	}
	return b
}

// Mark classifies the error with one of the marker errors and returns it
func (b *ErrorBuilder) Mark(reference error) error {
	err := b.err
	if len(b.details) > 0 {
		err = &reportableError{cause: err, details: b.details}
	}
	return errors.Mark(err, reference)
}

// reportableError carries details that survive wrapping
type reportableError struct {
	cause   error
	details map[string]interface{}
}

func (e *reportableError) Error() string { return e.cause.Error() }
func (e *reportableError) Unwrap() error { return e.cause }

// GetReportableDetails merges every details map found in the error chain.
// Outer details win over inner ones.
func GetReportableDetails(err error) map[string]interface{} {
	var chain []*reportableError
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if r, ok := e.(*reportableError); ok {
			chain = append(chain, r)
		}
	}
	if len(chain) == 0 {
		return nil
	}

	details := make(map[string]interface{})
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].details {
			details[k] = v
		}
	}
	return details
}
