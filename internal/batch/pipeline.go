// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meshint/convertmd/pkg/types"
)

// ErrNoInput is returned when a batch is submitted with zero files. It is the
// only hard error the pipeline raises; per-file failures are data, not faults.
var ErrNoInput = errors.New("no input files submitted")

// Pipeline composes the scheduler and the archive builder into the single
// batch entry point.
type Pipeline struct {
	adapter   Adapter
	scheduler *Scheduler
	log       *zap.Logger
}

// NewPipeline creates a pipeline converting through adapter with the given
// worker pool size (non-positive selects the default). logger may be nil.
func NewPipeline(adapter Adapter, workers int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		adapter:   adapter,
		scheduler: NewScheduler(workers),
		log:       logger,
	}
}

// Run converts files as one batch and returns the ZIP archive of successful
// outputs plus the report. Indexes follow submission order, so archive
// entries and report sequences always come back in the order the files were
// submitted. Partial failure is a normal result; Run only errors on an empty
// batch.
func (p *Pipeline) Run(ctx context.Context, files []types.NamedFile, progress ProgressFunc) ([]byte, types.BatchReport, error) {
	if len(files) == 0 {
		return nil, types.BatchReport{}, ErrNoInput
	}

	items := make([]types.WorkItem, len(files))
	for i, f := range files {
		items[i] = types.WorkItem{Index: i, Name: f.Name, Content: f.Content}
	}

	batchID := uuid.NewString()
	start := time.Now()
	p.log.Info("batch started",
		zap.String("batch_id", batchID),
		zap.Int("files", len(items)),
	)

	outcomes := p.scheduler.Run(ctx, p.adapter, items, progress)

	archive, report, err := BuildArchive(outcomes)
	if err != nil {
		return nil, report, err
	}

	p.log.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", report.SucceededCount()),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", time.Since(start)),
	)
	return archive, report, nil
}

// RunSingle is the degenerate batch of size one, returning the Markdown text
// directly instead of an archive. The Outcome carries the failure when the
// file could not be converted.
func (p *Pipeline) RunSingle(ctx context.Context, file types.NamedFile) (string, types.Outcome) {
	item := types.WorkItem{Index: 0, Name: file.Name, Content: file.Content}
	out := p.adapter.Convert(ctx, item)
	return out.Markdown, out
}
