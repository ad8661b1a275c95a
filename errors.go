package invoicepdf

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine failure conditions.
var (
	ErrNoGraph     = errors.New("invoicepdf: template has no element graph")
	ErrEmptyOutput = errors.New("invoicepdf: backend produced no pages")
)

// RenderBackendFailure reports a failure of the primary render path. The
// engine logs it and prints the document with the fallback renderer.
type RenderBackendFailure struct {
	Op  string // pipeline stage: "validate", "bind", "layout", "draw", "guard" or "panic"
	Err error
}

func (e *RenderBackendFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invoicepdf.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("invoicepdf.%s: unknown error", e.Op)
}

func (e *RenderBackendFailure) Unwrap() error {
	return e.Err
}

// FallbackFailure reports that the fallback renderer failed too. It is the
// only render error returned to callers apart from cancellation.
type FallbackFailure struct {
	Err   error
	Cause error // primary failure that triggered the fallback, nil for legacy templates
}

func (e *FallbackFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invoicepdf.fallback: %v (after %v)", e.Err, e.Cause)
	}
	return fmt.Sprintf("invoicepdf.fallback: %v", e.Err)
}

func (e *FallbackFailure) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func backendFailure(op string, err error) *RenderBackendFailure {
	return &RenderBackendFailure{Op: op, Err: err}
}
