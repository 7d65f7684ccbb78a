package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/foilscan/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "foilscan.db"

// RunDB stores run documents and their posts.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the run history in dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

func (rdb *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		surface TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		post_count INTEGER NOT NULL DEFAULT 0,
		failure TEXT,
		credential_refreshed INTEGER NOT NULL DEFAULT 0,
		document_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_surface ON runs(surface);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		post_id INTEGER NOT NULL,
		text_excerpt TEXT NOT NULL,
		foils TEXT NOT NULL,
		rider_weight INTEGER,
		use_case TEXT,
		skill_level TEXT,
		sentiment TEXT NOT NULL,
		captured_at TEXT NOT NULL,
		UNIQUE(run_id, post_id)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_run ON posts(run_id);
	`
	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary describes a stored run without loading its document.
type RunSummary struct {
	ID                  string
	Surface             string
	Source              string
	Status              model.RunStatus
	StartedAt           time.Time
	FinishedAt          time.Time
	PostCount           int
	Failure             string
	CredentialRefreshed bool
}

// SaveRun stores doc and its posts, replacing an earlier copy of the
// same run.
func (rdb *RunDB) SaveRun(ctx context.Context, doc *model.Document) error {
	if doc == nil || doc.Meta.RunID == "" {
		return errors.New("document has no run ID")
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, surface, source, status, started_at, finished_at, post_count, failure, credential_refreshed, document_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		finished_at = excluded.finished_at,
		post_count = excluded.post_count,
		failure = excluded.failure,
		credential_refreshed = excluded.credential_refreshed,
		document_json = excluded.document_json
	`,
		doc.Meta.RunID,
		doc.Meta.Surface,
		doc.Meta.Source,
		string(doc.Meta.Status),
		formatTimestamp(doc.Meta.CapturedAt),
		nullTimestamp(doc.Meta.FinishedAt),
		len(doc.Posts),
		nullString(doc.Meta.Failure),
		doc.Meta.CredentialRefreshed,
		string(docJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE run_id = ?`, doc.Meta.RunID); err != nil {
		return fmt.Errorf("failed to clear posts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO posts (run_id, post_id, text_excerpt, foils, rider_weight, use_case, skill_level, sentiment, captured_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare post insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range doc.Posts {
		foils, err := json.Marshal(p.FoilsMentioned)
		if err != nil {
			return fmt.Errorf("failed to serialize foils: %w", err)
		}
		var weight sql.NullInt64
		if p.RiderWeight != nil {
			weight = sql.NullInt64{Int64: int64(*p.RiderWeight), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			doc.Meta.RunID,
			p.ID,
			p.TextExcerpt,
			string(foils),
			weight,
			nullString(string(p.UseCase)),
			nullString(string(p.SkillLevel)),
			string(p.Sentiment),
			formatTimestamp(p.CapturedAt),
		); err != nil {
			return fmt.Errorf("failed to save post %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Persist stores doc. It lets the database act as a pipeline sink.
func (rdb *RunDB) Persist(ctx context.Context, doc *model.Document) error {
	return rdb.SaveRun(ctx, doc)
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Surface limits the result to one surface. Empty lists all.
	Surface string
	// Limit caps the number of runs. Zero means no limit.
	Limit int
}

// ListRuns returns stored runs, newest first.
func (rdb *RunDB) ListRuns(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	query := `
	SELECT id, surface, source, status, started_at, finished_at, post_count, failure, credential_refreshed
	FROM runs`
	var args []any
	if opts.Surface != "" {
		query += ` WHERE surface = ?`
		args = append(args, opts.Surface)
	}
	query += ` ORDER BY started_at DESC, id`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			s          RunSummary
			status     string
			startedAt  string
			finishedAt sql.NullString
			failure    sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Surface, &s.Source, &status, &startedAt, &finishedAt, &s.PostCount, &failure, &s.CredentialRefreshed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.Status = model.RunStatus(status)
		s.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid {
			s.FinishedAt = parseTimestamp(finishedAt.String)
		}
		s.Failure = failure.String
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// GetRun returns the document of the run whose ID is id or starts with id.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}

	rows, err := rdb.db.QueryContext(ctx, `
	SELECT id, document_json FROM runs
	WHERE id = ? OR substr(id, 1, ?) = ?
	ORDER BY id = ? DESC
	LIMIT 2
	`, id, len(id), id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	type match struct{ id, doc string }
	var matches []match
	for rows.Next() {
		var m match
		if err := rows.Scan(&m.id, &m.doc); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1 && matches[0].id != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}
	return decodeDocument(matches[0].doc)
}

// LatestRun returns the most recent run of surface.
func (rdb *RunDB) LatestRun(ctx context.Context, surface string) (*model.Document, error) {
	var docJSON string
	err := rdb.db.QueryRowContext(ctx, `
	SELECT document_json FROM runs
	WHERE surface = ?
	ORDER BY started_at DESC
	LIMIT 1
	`, surface).Scan(&docJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for surface %q", ErrRunNotFound, surface)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return decodeDocument(docJSON)
}

// FoilMentionsOverTime returns, for every run of surface that mentioned
// foil, the run start and the number of posts mentioning it, oldest first.
func (rdb *RunDB) FoilMentionsOverTime(ctx context.Context, surface, foil string) ([]FoilMentionPoint, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT r.id, r.started_at, COUNT(p.id)
	FROM runs r
	JOIN posts p ON p.run_id = r.id
	WHERE r.surface = ?
	  AND EXISTS (SELECT 1 FROM json_each(p.foils) WHERE json_each.value = ?)
	GROUP BY r.id
	ORDER BY r.started_at
	`, surface, foil)
	if err != nil {
		return nil, fmt.Errorf("failed to query mentions: %w", err)
	}
	defer rows.Close()

	var points []FoilMentionPoint
	for rows.Next() {
		var p FoilMentionPoint
		var startedAt string
		if err := rows.Scan(&p.RunID, &startedAt, &p.Posts); err != nil {
			return nil, fmt.Errorf("failed to scan mention: %w", err)
		}
		p.StartedAt = parseTimestamp(startedAt)
		points = append(points, p)
	}
	return points, rows.Err()
}

// FoilMentionPoint is one run in a mention trend.
type FoilMentionPoint struct {
	RunID     string
	StartedAt time.Time
	Posts     int
}

func decodeDocument(s string) (*model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// timestampLayout has a fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func nullTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses s with the first matching format, or returns the
// zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
