// Package database keeps the history of runs in SQLite.
//
// Every finished run is stored with its document and its posts so earlier
// captures can be listed, inspected and compared. The history is never
// consulted while collecting: deduplication is strictly per run.
//
// modernc.org/sqlite is used so the binary stays CGO-free.
package database
