// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meshint/convertmd/internal/container"
)

const imageMarkitdown = "markitdown:latest"

// supportedExtensions lists the document formats the markitdown image
// handles. Anything else is rejected before a container is started.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".ppt":  true,
	".pptx": true,
	".xls":  true,
	".xlsx": true,
	".epub": true,
}

// MarkitdownConverter converts documents by piping them through the
// markitdown container image. It depends on a container.Runtime (docker or
// podman) injected at construction time.
type MarkitdownConverter struct {
	runtime container.Runtime
}

// NewMarkitdownConverter creates a converter that uses the given container
// runtime to run the markitdown image. It verifies that the markitdown image
// exists locally before returning.
func NewMarkitdownConverter(rt container.Runtime) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt}, nil
}

// Convert pipes content through the markitdown container and returns the
// resulting Markdown text. The extension of name is passed to the image as
// the format hint. An empty result is not an error here; the Adapter decides
// what an empty conversion means.
func (m *MarkitdownConverter) Convert(ctx context.Context, name string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !supportedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	var out bytes.Buffer
	args := []string{"-x", ext}
	if err := m.runtime.Run(ctx, imageMarkitdown, args, bytes.NewReader(content), &out); err != nil {
		return "", fmt.Errorf("converting %s with markitdown: %w", name, err)
	}

	return out.String(), nil
}
