package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/specs"
)

// Placeholders recognised by OutputPath.
const (
	PlaceholderSurface = "{surface}"
	PlaceholderDate    = "{date}"
)

// OutputPath expands the placeholders in pattern. An empty surface
// expands to "default".
func OutputPath(pattern, surface string, at time.Time) string {
	if surface == "" {
		surface = "default"
	}
	r := strings.NewReplacer(
		PlaceholderSurface, surface,
		PlaceholderDate, at.UTC().Format("20060102-150405"),
	)
	return r.Replace(pattern)
}

// FileSink writes each document to a JSON file, replacing any previous
// file atomically. A Markdown summary can be written next to it.
type FileSink struct {
	path         string
	markdownPath string
	table        *specs.Table
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithMarkdownSummary also writes a Markdown summary to path.
func WithMarkdownSummary(path string, table *specs.Table) FileSinkOption {
	return func(s *FileSink) {
		s.markdownPath = path
		s.table = table
	}
}

// NewFileSink creates a FileSink writing to path.
func NewFileSink(path string, opts ...FileSinkOption) *FileSink {
	s := &FileSink{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the JSON output path.
func (s *FileSink) Path() string {
	return s.path
}

// Persist writes doc.
func (s *FileSink) Persist(ctx context.Context, doc *model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf).Write(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return err
	}

	if s.markdownPath == "" {
		return nil
	}
	buf.Reset()
	if _, err := NewMarkdownWriter(&buf, WithSpecTable(s.table)).Write(doc); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return writeFileAtomic(s.markdownPath, buf.Bytes())
}

// WriterSink adapts a Writer to a pipeline sink.
type WriterSink struct {
	Writer Writer
}

// Persist writes doc with the wrapped Writer.
func (s WriterSink) Persist(_ context.Context, doc *model.Document) error {
	_, err := s.Writer.Write(doc)
	return err
}

// WriteFile writes data to path atomically, creating parent directories.
func WriteFile(path string, data []byte) error {
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // output is meant to be shared
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
