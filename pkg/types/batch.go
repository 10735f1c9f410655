// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the shared data model passed between pipeline stages.
package types

// FailureReason classifies why a single file failed conversion.
type FailureReason string

const (
	// ReasonUnsupportedFormat means the file extension or content is not
	// handled by the conversion backend.
	ReasonUnsupportedFormat FailureReason = "unsupported-format"

	// ReasonEmptyContent means conversion ran but produced no text.
	ReasonEmptyContent FailureReason = "empty-content"

	// ReasonConversionError covers every other fault from the conversion
	// backend, including timeouts.
	ReasonConversionError FailureReason = "conversion-error"
)

// EmptyContentDetail is the human-readable detail attached to every
// empty-content failure.
const EmptyContentDetail = "No content extracted"

// NamedFile is one uploaded document: the original filename plus its raw bytes.
type NamedFile struct {
	Name    string
	Content []byte
}

// WorkItem is one file accepted into a batch. Index is the 0-based submission
// position and determines final result ordering. A WorkItem is immutable once
// created and owned by exactly one worker while it is being converted.
type WorkItem struct {
	Index   int
	Name    string
	Content []byte
}

// Failure describes how a single conversion failed.
type Failure struct {
	// Reason is the machine-readable failure class.
	Reason FailureReason `json:"reason" yaml:"reason"`

	// Detail is a short human-readable diagnostic.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Outcome is the result of converting one WorkItem. Exactly one Outcome is
// produced per item: either Markdown is set (success) or Failure is non-nil.
type Outcome struct {
	Index    int
	Name     string
	Markdown string
	Failure  *Failure
}

// Succeeded reports whether the conversion produced usable Markdown.
func (o Outcome) Succeeded() bool { return o.Failure == nil }

// FailedFile is one entry in the BatchReport failure manifest.
type FailedFile struct {
	// Name is the original filename as submitted.
	Name string `json:"name" yaml:"name"`

	// Reason is the failure class.
	Reason FailureReason `json:"reason" yaml:"reason"`

	// Detail is the diagnostic carried by the failure, if any.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// BatchReport summarizes one batch run. Succeeded holds archive entry names
// and Failed holds one entry per failure, both in submission order.
type BatchReport struct {
	// Total is the number of files submitted.
	Total int `json:"total" yaml:"total"`

	// Succeeded lists the archive entry names of converted files.
	Succeeded []string `json:"succeeded" yaml:"succeeded"`

	// Failed lists each file that could not be converted, with its reason.
	Failed []FailedFile `json:"failed" yaml:"failed"`
}

// SucceededCount returns the number of successful conversions.
func (r BatchReport) SucceededCount() int { return len(r.Succeeded) }

// HasFailures reports whether any file in the batch failed.
func (r BatchReport) HasFailures() bool { return len(r.Failed) > 0 }

// AllFailed reports whether no file in the batch converted successfully.
func (r BatchReport) AllFailed() bool { return r.Total > 0 && len(r.Succeeded) == 0 }
