// Package report renders run documents and catalog snapshots.
//
// Writers implement the Writer interface:
//   - JSONWriter: the machine-readable document consumed downstream
//   - MarkdownWriter: a summary for sharing, with mention and weight tables
//   - SimpleWriter: a short summary for the terminal
//
// FileSink persists documents to disk and can be handed to the pipeline
// runner as a Sink.
package report
