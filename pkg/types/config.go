// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConvertConfig holds settings for the batch conversion pipeline.
type ConvertConfig struct {
	// Workers is the size of the conversion worker pool. Zero means the
	// default (proportional to available parallelism, capped).
	Workers int `json:"workers" yaml:"workers"`

	// Timeout bounds each individual conversion invocation (default 120s).
	// A conversion that exceeds it fails with reason conversion-error and
	// detail "timeout" instead of stalling the batch.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ServeConfig holds settings for the HTTP boundary.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// MaxUploadBytes caps the total size of one multipart upload
	// (default 256 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}
