package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Archive preserves jobs retired out of the document's bounded history. The
// document keeps the newest entries for quick display; the archive keeps
// everything.
type Archive struct {
	db   *sql.DB
	path string
}

// OpenArchive initializes or connects to the retired-jobs database.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	archive := &Archive{db: db, path: path}
	if err := archive.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return archive, nil
}

func (a *Archive) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS retired_jobs (
    id            TEXT PRIMARY KEY,
    file_path     TEXT NOT NULL,
    name          TEXT NOT NULL,
    status        TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    started_at    TEXT,
    ended_at      TEXT,
    error_message TEXT NOT NULL DEFAULT '',
    metadata_json TEXT NOT NULL DEFAULT '{}',
    archived_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_retired_jobs_archived_at ON retired_jobs(archived_at);
`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("init archive schema: %w", err)
	}
	return nil
}

// Append records retired jobs. Re-archiving a job with a known ID replaces
// the earlier row.
func (a *Archive) Append(jobs ...*Job) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insert = `
INSERT OR REPLACE INTO retired_jobs
    (id, file_path, name, status, created_at, started_at, ended_at, error_message, metadata_json, archived_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	archivedAt := formatTime(time.Now())
	for _, job := range jobs {
		metadata, err := json.Marshal(job.Metadata)
		if err != nil {
			metadata = []byte("{}")
		}
		_, err = tx.Exec(insert,
			job.ID,
			job.FilePath,
			job.Name,
			string(job.Status),
			formatTime(job.CreatedAt),
			nullableTime(job.StartedAt),
			nullableTime(job.EndedAt),
			job.ErrorMessage,
			string(metadata),
			archivedAt,
		)
		if err != nil {
			return fmt.Errorf("archive job %s: %w", job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// List returns archived jobs, most recently archived first. A non-positive
// limit returns everything.
func (a *Archive) List(limit int) ([]*Job, error) {
	query := `
SELECT id, file_path, name, status, created_at, started_at, ended_at, error_message, metadata_json
FROM retired_jobs
ORDER BY archived_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*Job
	for rows.Next() {
		var (
			job                Job
			status             string
			createdAt          string
			startedAt, endedAt sql.NullString
			metadata           string
		)
		if err := rows.Scan(&job.ID, &job.FilePath, &job.Name, &status, &createdAt, &startedAt, &endedAt, &job.ErrorMessage, &metadata); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		job.Status = Status(status)
		if t, err := parseTime(createdAt); err == nil {
			job.CreatedAt = t
		}
		if startedAt.Valid {
			if t, err := parseTime(startedAt.String); err == nil {
				job.StartedAt = &t
			}
		}
		if endedAt.Valid {
			if t, err := parseTime(endedAt.String); err == nil {
				job.EndedAt = &t
			}
		}
		job.Metadata = map[string]string{}
		_ = json.Unmarshal([]byte(metadata), &job.Metadata)
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// Count reports the number of archived jobs.
func (a *Archive) Count() (int, error) {
	var count int
	if err := a.db.QueryRow("SELECT COUNT(*) FROM retired_jobs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count archive: %w", err)
	}
	return count, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
