// Package export writes a conversation to a file format.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"echoflow/internal/chat"

	"github.com/pkg/errors"
)

// Document is what gets exported.
type Document struct {
	Mode     chat.Mode      `json:"mode" yaml:"mode"`
	Exported time.Time      `json:"exported" yaml:"exported"`
	Messages []chat.Message `json:"messages" yaml:"messages"`
}

// Exporter defines the interface for all export formats.
type Exporter interface {
	Export(w io.Writer, doc Document) error
	Extension() string
}

// New returns the exporter for format.
func New(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "pdf":
		return &PDFExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, pdf, yaml, json)", format)
	}
}

// Filename is echoflow-export-<unix ms>.<ext>.
func Filename(t time.Time, ext string) string {
	return fmt.Sprintf("echoflow-export-%d.%s", t.UnixMilli(), ext)
}

// WriteFile exports doc into dir and returns the path written.
func WriteFile(e Exporter, dir string, doc Document) (string, error) {
	if doc.Exported.IsZero() {
		doc.Exported = time.Now()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create export dir")
	}
	path := filepath.Join(dir, Filename(doc.Exported, e.Extension()))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create export file")
	}
	if err := e.Export(f, doc); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrapf(err, "export %s", e.Extension())
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close export file")
	}
	return path, nil
}
