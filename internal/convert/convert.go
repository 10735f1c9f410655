// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert wraps the external document-to-Markdown capability behind a
// uniform contract. The Adapter never lets a fault escape to the scheduler:
// every error, timeout, or empty result from the backend becomes a Failure
// recorded on the Outcome.
package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/meshint/convertmd/pkg/types"
)

// DefaultTimeout bounds a single conversion invocation when no explicit
// timeout is configured.
const DefaultTimeout = 120 * time.Second

// maxDetailLen caps the diagnostic text carried on a Failure.
const maxDetailLen = 200

// ErrUnsupportedFormat is returned by a Converter that rejects the file's
// extension or content.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Converter transforms one named document into Markdown text. Different
// backends (markitdown container, native parsers) implement this interface.
// Implementations must be safe for concurrent use.
type Converter interface {
	// Convert returns the Markdown rendering of content. The filename
	// carries the extension used as a format hint.
	Convert(ctx context.Context, name string, content []byte) (string, error)
}

// Adapter turns Converter calls into Outcomes, normalizing every failure
// mode into one of the recognized reasons. Stateless and safe to invoke
// concurrently.
type Adapter struct {
	conv    Converter
	timeout time.Duration
}

// NewAdapter wraps conv. A non-positive timeout falls back to DefaultTimeout.
func NewAdapter(conv Converter, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{conv: conv, timeout: timeout}
}

// Convert runs the backend for one WorkItem and returns its Outcome. The
// invocation is bounded by the adapter timeout; exceeding it yields a
// conversion-error failure with detail "timeout" rather than blocking the
// batch. A panicking backend is recovered and reported the same way as an
// error.
func (a *Adapter) Convert(ctx context.Context, item types.WorkItem) (out types.Outcome) {
	out = types.Outcome{Index: item.Index, Name: item.Name}

	defer func() {
		if r := recover(); r != nil {
			out.Markdown = ""
			out.Failure = &types.Failure{
				Reason: types.ReasonConversionError,
				Detail: truncateDetail(fmt.Sprintf("panic: %v", r)),
			}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.conv.Convert(ctx, item.Name, item.Content)
	if err != nil {
		out.Failure = classify(ctx, item.Name, err)
		return out
	}

	if strings.TrimSpace(text) == "" {
		out.Failure = &types.Failure{
			Reason: types.ReasonEmptyContent,
			Detail: types.EmptyContentDetail,
		}
		return out
	}

	out.Markdown = text
	return out
}

// classify maps a backend error to a Failure.
func classify(ctx context.Context, name string, err error) *types.Failure {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return &types.Failure{
			Reason: types.ReasonUnsupportedFormat,
			Detail: fmt.Sprintf("unsupported file type: %s", strings.ToLower(filepath.Ext(name))),
		}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &types.Failure{
			Reason: types.ReasonConversionError,
			Detail: "timeout",
		}
	default:
		return &types.Failure{
			Reason: types.ReasonConversionError,
			Detail: truncateDetail(err.Error()),
		}
	}
}

// truncateDetail shortens long backend diagnostics so reports stay readable.
func truncateDetail(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	return s[:maxDetailLen] + "..."
}
