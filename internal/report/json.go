package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/foilscan/internal/model"
)

// JSONWriter outputs documents as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithCompact disables indentation.
func WithCompact() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = false
	}
}

// NewJSONWriter creates a JSONWriter. Output is pretty-printed unless
// WithCompact is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indent:       true,
		indentString: "  ",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run document.
func (w *JSONWriter) Write(doc *model.Document) (int, error) {
	return w.writeJSON(doc)
}

// WriteCatalog outputs a catalog snapshot.
func (w *JSONWriter) WriteCatalog(cat *model.Catalog) (int, error) {
	return w.writeJSON(cat)
}

// WriteSpecTable outputs the spec table as a key to geometry object.
func (w *JSONWriter) WriteSpecTable(records []model.SpecRecord) (int, error) {
	type geometry struct {
		AspectRatio float64 `json:"aspectRatio"` //nolint:tagliatelle // consumed downstream under this name
		Wingspan    int     `json:"wingspan"`
	}
	table := make(map[string]geometry, len(records))
	for _, r := range records {
		table[r.Key] = geometry{AspectRatio: r.AspectRatio, Wingspan: r.Wingspan}
	}
	return w.writeJSON(table)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
