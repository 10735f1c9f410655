// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meshint/convertmd/pkg/types"
)

// OutputExt is the canonical extension for converted entries.
const OutputExt = ".md"

// BuildArchive packages every successful outcome into an in-memory ZIP and
// accumulates the batch report. Outcomes must be ordered by ascending index,
// which is how Scheduler.Run returns them; entry order and naming are then a
// pure function of the outcomes, independent of worker completion order.
//
// Zero successes is not an error: the result is a valid empty archive and a
// report whose Failed sequence carries every file.
func BuildArchive(outcomes []types.Outcome) ([]byte, types.BatchReport, error) {
	report := types.BatchReport{
		Total:     len(outcomes),
		Succeeded: []string{},
		Failed:    []types.FailedFile{},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]bool, len(outcomes))

	for _, o := range outcomes {
		if !o.Succeeded() {
			report.Failed = append(report.Failed, types.FailedFile{
				Name:   o.Name,
				Reason: o.Failure.Reason,
				Detail: o.Failure.Detail,
			})
			continue
		}

		entry := entryName(used, o)
		used[entry] = true

		// A fixed header (no modification time) keeps the archive
		// byte-identical across runs with the same outcomes.
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   entry,
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, report, fmt.Errorf("creating archive entry %s: %w", entry, err)
		}
		if _, err := w.Write([]byte(o.Markdown)); err != nil {
			return nil, report, fmt.Errorf("writing archive entry %s: %w", entry, err)
		}

		report.Succeeded = append(report.Succeeded, entry)
	}

	if err := zw.Close(); err != nil {
		return nil, report, fmt.Errorf("finalizing archive: %w", err)
	}

	return buf.Bytes(), report, nil
}

// entryName derives the archive entry name from the original filename: the
// extension is replaced with OutputExt, and stem collisions are resolved by
// appending the zero-padded item index. The index is unique per batch, so
// one suffix round normally settles it; the loop covers inputs that already
// end in such a suffix.
func entryName(used map[string]bool, o types.Outcome) string {
	base := filepath.Base(o.Name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "document"
	}

	name := stem + OutputExt
	for used[name] {
		stem = fmt.Sprintf("%s-%02d", stem, o.Index)
		name = stem + OutputExt
	}
	return name
}
