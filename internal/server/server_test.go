// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshint/convertmd/internal/batch"
	"github.com/meshint/convertmd/internal/convert"
	"github.com/meshint/convertmd/internal/metrics"
	"github.com/meshint/convertmd/pkg/types"
)

// scriptedConverter returns canned Markdown or an error per filename.
type scriptedConverter struct {
	results map[string]string
	errs    map[string]error
}

func (s *scriptedConverter) Convert(_ context.Context, name string, _ []byte) (string, error) {
	if err, ok := s.errs[name]; ok {
		return "", err
	}
	return s.results[name], nil
}

func newTestServer(conv convert.Converter) *Server {
	adapter := convert.NewAdapter(conv, time.Second)
	pipeline := batch.NewPipeline(adapter, 2, nil)
	return New(pipeline, metrics.New(), types.ServeConfig{}, nil)
}

// multipartUpload builds a multipart request body with one part per file
// under the "files" field.
func multipartUpload(t *testing.T, files []types.NamedFile) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		require.NoError(t, err)
		_, err = part.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func postConvert(t *testing.T, srv *Server, target string, files []types.NamedFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, files)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestConvertBatch(t *testing.T) {
	srv := newTestServer(&scriptedConverter{
		results: map[string]string{"a.docx": "# A", "c.xlsx": "| t |"},
		errs:    map[string]error{"b.pdf": errors.New("parser crashed")},
	})

	rec := postConvert(t, srv, "/api/convert", []types.NamedFile{
		{Name: "a.docx", Content: []byte("a")},
		{Name: "b.pdf", Content: []byte("b")},
		{Name: "c.xlsx", Content: []byte("c")},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), archiveFilename)
	assert.Equal(t, "2", rec.Header().Get("X-Conversion-Succeeded"))
	assert.Equal(t, "1", rec.Header().Get("X-Conversion-Failed"))

	data := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "a.md", zr.File[0].Name)
	assert.Equal(t, "c.md", zr.File[1].Name)
}

func TestConvertBatchReportOnly(t *testing.T) {
	srv := newTestServer(&scriptedConverter{
		results: map[string]string{"a.docx": "# A"},
		errs:    map[string]error{"b.pdf": errors.New("boom")},
	})

	rec := postConvert(t, srv, "/api/convert?report=only", []types.NamedFile{
		{Name: "a.docx"},
		{Name: "b.pdf"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var report types.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, []string{"a.md"}, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, types.ReasonConversionError, report.Failed[0].Reason)
}

func TestConvertSingleSuccess(t *testing.T) {
	srv := newTestServer(&scriptedConverter{
		results: map[string]string{"one.pdf": "# One"},
	})

	rec := postConvert(t, srv, "/api/convert", []types.NamedFile{
		{Name: "one.pdf", Content: []byte("x")},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "one.md")
	assert.Equal(t, "# One", rec.Body.String())
}

func TestConvertSingleFailure(t *testing.T) {
	srv := newTestServer(&scriptedConverter{
		errs: map[string]error{"notes.txt": convert.ErrUnsupportedFormat},
	})

	rec := postConvert(t, srv, "/api/convert", []types.NamedFile{
		{Name: "notes.txt", Content: []byte("x")},
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var report types.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Total)
	assert.Empty(t, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, types.ReasonUnsupportedFormat, report.Failed[0].Reason)
}

func TestConvertNoFiles(t *testing.T) {
	srv := newTestServer(&scriptedConverter{})

	rec := postConvert(t, srv, "/api/convert", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "no input files")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&scriptedConverter{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&scriptedConverter{
		results: map[string]string{"a.pdf": "# A", "b.pdf": "# B"},
	})

	postConvert(t, srv, "/api/convert", []types.NamedFile{
		{Name: "a.pdf"}, {Name: "b.pdf"},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "convertmd_batches_total 1")
}
