// Package gateway translates a single image edit into one call to a hosted
// image model and maps the outcome back into domain types.
package gateway

import (
	"context"
	"errors"

	"studio/internal/domain"
)

// Kind classifies why an edit failed. It is informational only; callers show
// Error.Message to the user verbatim.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindRefusal      Kind = "refusal"
	KindUnauthorized Kind = "unauthorized"
	KindInvalidInput Kind = "invalid_input"
)

// RefusalPrefix marks messages that came from the model rather than from a
// transport fault.
const RefusalPrefix = "Model returned: "

// Error is the only error type returned by an Editor.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a gateway error, or "" for any other error.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

// Editor applies a natural-language instruction to an image. Implementations
// issue exactly one upstream call per invocation and never retry.
type Editor interface {
	Edit(ctx context.Context, image domain.ImageRef, prompt, mimeType string) (domain.ImageRef, error)
}

// EditorFunc adapts a function to the Editor interface.
type EditorFunc func(ctx context.Context, image domain.ImageRef, prompt, mimeType string) (domain.ImageRef, error)

func (f EditorFunc) Edit(ctx context.Context, image domain.ImageRef, prompt, mimeType string) (domain.ImageRef, error) {
	return f(ctx, image, prompt, mimeType)
}
