package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/stats"
)

// SimpleWriter outputs a short plain-text summary for the terminal.
type SimpleWriter struct {
	baseWriter

	topN    int
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every post excerpt after the summary.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithSimpleTopMentions limits the mention list to n entries.
func WithSimpleTopMentions(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.topN = n
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		topN:       10,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary of doc.
func (w *SimpleWriter) Write(doc *model.Document) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, doc)
	w.writeMentions(&sb, doc.Statistics)
	w.writeUseCases(&sb, doc.Statistics)
	if w.verbose {
		w.writePosts(&sb, doc.Posts)
	}

	return io.WriteString(w.output, sb.String())
}

func rule(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, doc *model.Document) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         FOILSCAN RUN\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Source:   %s\n", doc.Meta.Source)
	if doc.Meta.Surface != "" {
		fmt.Fprintf(sb, "Surface:  %s\n", doc.Meta.Surface)
	}
	fmt.Fprintf(sb, "Captured: %s\n", doc.Meta.CapturedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Posts:    %d\n", len(doc.Posts))

	switch {
	case !doc.Failed():
		sb.WriteString("Status:   Complete\n")
	case doc.Meta.Status == model.RunStatusInterrupted:
		sb.WriteString("Status:   INTERRUPTED (partial results)\n")
	default:
		fmt.Fprintf(sb, "Status:   FAILED - %s\n", doc.Meta.Failure)
	}
	if doc.Meta.CredentialRefreshed {
		sb.WriteString("Session:  refreshed by manual login\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeMentions(sb *strings.Builder, s *model.AggregateStatistics) {
	mentions := stats.TopMentions(s, w.topN)
	if len(mentions) == 0 {
		return
	}
	rule(sb, "TOP FOILS")
	for i, m := range mentions {
		fmt.Fprintf(sb, "  %2d. %-20s %d\n", i+1, m.Foil, m.Count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeUseCases(sb *strings.Builder, s *model.AggregateStatistics) {
	counts := stats.UseCaseCounts(s)
	if len(counts) == 0 {
		return
	}
	rule(sb, "USE CASES")
	for _, c := range counts {
		fmt.Fprintf(sb, "  %-10s %d\n", c.UseCase, c.Count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePosts(sb *strings.Builder, posts []model.PostRecord) {
	if len(posts) == 0 {
		return
	}
	rule(sb, "POSTS")
	for _, p := range posts {
		fmt.Fprintf(sb, "  #%d [%s] %s\n", p.ID, strings.Join(p.FoilsMentioned, ", "), truncateString(p.TextExcerpt, 80))
	}
	sb.WriteString("\n")
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
