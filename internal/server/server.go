// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the HTTP boundary the UI collaborator talks to: one
// upload endpoint driving the batch pipeline, plus health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meshint/convertmd/internal/batch"
	"github.com/meshint/convertmd/internal/metrics"
	"github.com/meshint/convertmd/pkg/types"
)

const (
	// archiveFilename is the download name for batch results.
	archiveFilename = "converted_markdown_files.zip"

	// defaultMaxUploadBytes caps one multipart upload when the config
	// leaves it unset.
	defaultMaxUploadBytes = 256 << 20

	// memoryLimit is how much of a parsed multipart form stays in memory
	// before spilling to temp files.
	memoryLimit = 32 << 20
)

// Server serves the conversion API.
type Server struct {
	pipeline  *batch.Pipeline
	metrics   *metrics.Metrics
	log       *zap.Logger
	maxUpload int64
}

// New creates a Server. logger may be nil; metrics must not be.
func New(pipeline *batch.Pipeline, m *metrics.Metrics, cfg types.ServeConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Server{
		pipeline:  pipeline,
		metrics:   m,
		log:       logger,
		maxUpload: maxUpload,
	}
}

// Handler returns the routed HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/convert", s.handleConvert)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return s.logRequests(mux)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info("listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	files, err := readUpload(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	done := s.metrics.BatchStarted()

	if len(files) == 1 {
		s.convertSingle(w, r, files[0], done)
		return
	}
	s.convertBatch(w, r, files, done)
}

// convertSingle returns the Markdown text directly: the N=1 batch needs no
// archive wrapper.
func (s *Server) convertSingle(w http.ResponseWriter, r *http.Request, file types.NamedFile, done func(types.BatchReport)) {
	md, out := s.pipeline.RunSingle(r.Context(), file)

	report := types.BatchReport{Total: 1, Succeeded: []string{}, Failed: []types.FailedFile{}}
	if out.Succeeded() {
		report.Succeeded = append(report.Succeeded, markdownName(file.Name))
	} else {
		report.Failed = append(report.Failed, types.FailedFile{
			Name:   out.Name,
			Reason: out.Failure.Reason,
			Detail: out.Failure.Detail,
		})
	}
	done(report)

	if !out.Succeeded() {
		s.writeReport(w, http.StatusUnprocessableEntity, report)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", markdownName(file.Name)))
	io.WriteString(w, md)
}

func (s *Server) convertBatch(w http.ResponseWriter, r *http.Request, files []types.NamedFile, done func(types.BatchReport)) {
	archive, report, err := s.pipeline.Run(r.Context(), files, nil)
	if err != nil {
		if errors.Is(err, batch.ErrNoInput) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.log.Error("batch run failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	done(report)

	// A client that only wants the manifest skips the archive download.
	if r.URL.Query().Get("report") == "only" {
		s.writeReport(w, http.StatusOK, report)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archiveFilename))
	w.Header().Set("X-Conversion-Succeeded", strconv.Itoa(report.SucceededCount()))
	w.Header().Set("X-Conversion-Failed", strconv.Itoa(len(report.Failed)))
	w.Write(archive)
}

// readUpload extracts the submitted files from the multipart form, in
// submission order. An unreadable form or empty file list is an
// input-validation error.
func readUpload(r *http.Request) ([]types.NamedFile, error) {
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		return nil, fmt.Errorf("unreadable upload: %w", err)
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, batch.ErrNoInput
	}

	files := make([]types.NamedFile, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("unreadable upload %q: %w", fh.Filename, err)
		}
		files = append(files, types.NamedFile{Name: fh.Filename, Content: content})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) writeReport(w http.ResponseWriter, status int, report types.BatchReport) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.log.Error("encoding report", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// markdownName maps an uploaded filename to its output name.
func markdownName(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "document"
	}
	return stem + batch.OutputExt
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
