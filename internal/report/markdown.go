package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/specs"
	"github.com/nao1215/foilscan/internal/stats"
)

// DefaultTopMentions is the number of foils listed in the mention table.
const DefaultTopMentions = 20

// MarkdownWriter outputs a run summary in Markdown.
type MarkdownWriter struct {
	baseWriter

	table *specs.Table
	topN  int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithSpecTable enriches the mention table with wing geometry.
func WithSpecTable(table *specs.Table) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.table = table
	}
}

// WithTopMentions limits the mention table to n rows. n <= 0 lists all.
func WithTopMentions(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.topN = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		topN:       DefaultTopMentions,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary of doc.
func (w *MarkdownWriter) Write(doc *model.Document) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, doc)
	w.writeMentions(md, doc.Statistics)
	w.writeUseCases(md, doc.Statistics)
	w.writeWeights(md, doc.Statistics)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, doc *model.Document) {
	md.H1("Foil Mentions Report")
	md.PlainText("")

	rows := [][]string{
		{"Source", doc.Meta.Source},
	}
	if doc.Meta.Surface != "" {
		rows = append(rows, []string{"Surface", doc.Meta.Surface})
	}
	rows = append(rows,
		[]string{"Run", "`" + doc.Meta.RunID + "`"},
		[]string{"Captured", doc.Meta.CapturedAt.Format("2006-01-02 15:04:05 MST")},
		[]string{"Status", statusText(doc)},
		[]string{"Posts", strconv.Itoa(len(doc.Posts))},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case doc.Meta.Status == model.RunStatusFailed:
		md.Warningf("The run failed: %s. The results below cover the posts collected before the failure.", doc.Meta.Failure)
	case doc.Meta.Status == model.RunStatusInterrupted:
		md.Importantf("The run was interrupted after collecting %d post(s).", len(doc.Posts))
	case len(doc.Posts) == 0:
		md.Note("No qualifying posts were found.")
	}
	md.PlainText("")
}

func statusText(doc *model.Document) string {
	switch doc.Meta.Status {
	case model.RunStatusFailed:
		return "❌ Failed"
	case model.RunStatusInterrupted:
		return "⚠️ Interrupted (partial results)"
	case model.RunStatusCompleted:
		return "✅ Complete"
	default:
		return string(doc.Meta.Status)
	}
}

func (w *MarkdownWriter) writeMentions(md *markdown.Markdown, s *model.AggregateStatistics) {
	md.H2("Most Mentioned Foils")
	md.PlainText("")

	mentions := stats.TopMentions(s, w.topN)
	if len(mentions) == 0 {
		md.PlainText("No foil models were mentioned.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(mentions))
	for _, m := range mentions {
		ar, span := "-", "-"
		if w.table != nil {
			if spec, ok := w.table.LookupModel(m.Foil); ok {
				ar = strconv.FormatFloat(spec.AspectRatio, 'f', 2, 64)
				span = strconv.Itoa(spec.Wingspan)
			}
		}
		rows = append(rows, []string{m.Foil, strconv.Itoa(m.Count), ar, span})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Foil", "Mentions", "Aspect Ratio", "Wingspan"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeUseCases(md *markdown.Markdown, s *model.AggregateStatistics) {
	counts := stats.UseCaseCounts(s)
	if len(counts) == 0 {
		return
	}

	md.H2("Use Cases")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Foil Mentions by Use Case"),
		piechart.WithShowData(true),
	)
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		if c.Count > 0 {
			chart.LabelAndIntValue(string(c.UseCase), uint64(c.Count))
		}
		rows = append(rows, []string{string(c.UseCase), strconv.Itoa(c.Count)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Use Case", "Foil Mentions"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeWeights(md *markdown.Markdown, s *model.AggregateStatistics) {
	if s == nil || len(s.WeightRecommendations) == 0 {
		return
	}

	md.H2("Rider Weights")
	md.PlainText("")

	recs := make([]model.WeightRecommendation, len(s.WeightRecommendations))
	copy(recs, s.WeightRecommendations)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Weight < recs[j].Weight })

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		useCase := string(r.UseCase)
		if useCase == "" {
			useCase = "-"
		}
		rows = append(rows, []string{strconv.Itoa(r.Weight), r.Foil, useCase, string(r.Sentiment)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Weight (lbs)", "Foil", "Use Case", "Sentiment"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [foilscan](https://github.com/nao1215/foilscan)*")
}
