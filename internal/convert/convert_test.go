// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/meshint/convertmd/pkg/types"
)

// fakeConverter implements Converter for testing. It returns canned Markdown
// or an error, depending on configuration.
type fakeConverter struct {
	output string
	err    error
	block  bool // when set, Convert blocks until ctx is done
	panics bool
}

func (f *fakeConverter) Convert(ctx context.Context, name string, content []byte) (string, error) {
	if f.panics {
		panic("converter blew up")
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func TestAdapterConvert(t *testing.T) {
	item := types.WorkItem{Index: 3, Name: "report.docx", Content: []byte("raw")}

	tests := []struct {
		name       string
		conv       *fakeConverter
		wantMD     string
		wantReason types.FailureReason
		wantDetail string
	}{
		{
			name:   "successful conversion",
			conv:   &fakeConverter{output: "# Report\n\nBody."},
			wantMD: "# Report\n\nBody.",
		},
		{
			name:       "unsupported format",
			conv:       &fakeConverter{err: ErrUnsupportedFormat},
			wantReason: types.ReasonUnsupportedFormat,
			wantDetail: "unsupported file type: .docx",
		},
		{
			name:       "empty output",
			conv:       &fakeConverter{output: ""},
			wantReason: types.ReasonEmptyContent,
			wantDetail: "No content extracted",
		},
		{
			name:       "whitespace-only output",
			conv:       &fakeConverter{output: "  \n\t\n"},
			wantReason: types.ReasonEmptyContent,
			wantDetail: "No content extracted",
		},
		{
			name:       "backend error",
			conv:       &fakeConverter{err: errors.New("container exited with code 1")},
			wantReason: types.ReasonConversionError,
			wantDetail: "container exited with code 1",
		},
		{
			name:       "panicking backend is recovered",
			conv:       &fakeConverter{panics: true},
			wantReason: types.ReasonConversionError,
			wantDetail: "panic: converter blew up",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(tt.conv, time.Second)
			out := a.Convert(context.Background(), item)

			if out.Index != item.Index || out.Name != item.Name {
				t.Errorf("outcome identity = (%d, %q), want (%d, %q)", out.Index, out.Name, item.Index, item.Name)
			}
			if tt.wantReason == "" {
				if !out.Succeeded() {
					t.Fatalf("expected success, got failure %+v", out.Failure)
				}
				if out.Markdown != tt.wantMD {
					t.Errorf("markdown = %q, want %q", out.Markdown, tt.wantMD)
				}
				return
			}
			if out.Succeeded() {
				t.Fatal("expected failure, got success")
			}
			if out.Markdown != "" {
				t.Errorf("failed outcome carries markdown %q", out.Markdown)
			}
			if out.Failure.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", out.Failure.Reason, tt.wantReason)
			}
			if out.Failure.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", out.Failure.Detail, tt.wantDetail)
			}
		})
	}
}

func TestAdapterTimeout(t *testing.T) {
	a := NewAdapter(&fakeConverter{block: true}, 10*time.Millisecond)
	out := a.Convert(context.Background(), types.WorkItem{Name: "slow.pdf"})

	if out.Succeeded() {
		t.Fatal("expected timeout failure")
	}
	if out.Failure.Reason != types.ReasonConversionError {
		t.Errorf("reason = %q, want %q", out.Failure.Reason, types.ReasonConversionError)
	}
	if out.Failure.Detail != "timeout" {
		t.Errorf("detail = %q, want %q", out.Failure.Detail, "timeout")
	}
}

func TestAdapterTruncatesLongDiagnostics(t *testing.T) {
	long := strings.Repeat("x", 5000)
	a := NewAdapter(&fakeConverter{err: errors.New(long)}, time.Second)

	out := a.Convert(context.Background(), types.WorkItem{Name: "big.pdf"})
	if out.Succeeded() {
		t.Fatal("expected failure")
	}
	if len(out.Failure.Detail) > maxDetailLen+3 {
		t.Errorf("detail length = %d, want <= %d", len(out.Failure.Detail), maxDetailLen+3)
	}
	if !strings.HasSuffix(out.Failure.Detail, "...") {
		t.Errorf("truncated detail should end with ellipsis, got %q", out.Failure.Detail[len(out.Failure.Detail)-10:])
	}
}

// fakeRuntime implements container.Runtime without starting containers.
type fakeRuntime struct {
	imageErr error
	output   string
	runErr   error
	gotArgs  []string
	gotIn    string
}

func (f *fakeRuntime) Name() string             { return "docker" }
func (f *fakeRuntime) Available() bool          { return true }
func (f *fakeRuntime) ImageExists(string) error { return f.imageErr }

func (f *fakeRuntime) Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	f.gotArgs = args
	data, _ := io.ReadAll(stdin)
	f.gotIn = string(data)
	if f.runErr != nil {
		return f.runErr
	}
	_, err := stdout.Write([]byte(f.output))
	return err
}

func TestNewMarkitdownConverter_ImageMissing(t *testing.T) {
	rt := &fakeRuntime{imageErr: errors.New("no such image")}
	if _, err := NewMarkitdownConverter(rt); err == nil {
		t.Fatal("expected error when image is missing")
	}
}

func TestMarkitdownConvert(t *testing.T) {
	rt := &fakeRuntime{output: "# Converted"}
	m, err := NewMarkitdownConverter(rt)
	if err != nil {
		t.Fatal(err)
	}

	md, err := m.Convert(context.Background(), "Slides.PPTX", []byte("binary"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md != "# Converted" {
		t.Errorf("markdown = %q, want %q", md, "# Converted")
	}
	if rt.gotIn != "binary" {
		t.Errorf("container stdin = %q, want %q", rt.gotIn, "binary")
	}
	if len(rt.gotArgs) != 2 || rt.gotArgs[0] != "-x" || rt.gotArgs[1] != ".pptx" {
		t.Errorf("format hint args = %v, want [-x .pptx]", rt.gotArgs)
	}
}

func TestMarkitdownConvert_UnsupportedExtension(t *testing.T) {
	rt := &fakeRuntime{output: "should not run"}
	m, err := NewMarkitdownConverter(rt)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"notes.txt", "photo.png", "noextension"} {
		_, err := m.Convert(context.Background(), name, []byte("x"))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
	if rt.gotIn != "" {
		t.Error("container should not run for unsupported extensions")
	}
}

func TestMarkitdownConvert_RunError(t *testing.T) {
	rt := &fakeRuntime{runErr: errors.New("oci runtime error")}
	m, err := NewMarkitdownConverter(rt)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Convert(context.Background(), "a.pdf", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "a.pdf") {
		t.Errorf("error should name the file, got: %v", err)
	}
}
