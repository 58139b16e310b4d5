package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sotstack/sotctl/pkg/api"
)

// Journal is a SQLite-backed record of orchestration runs. It is advisory
// state only: the orchestrator never reads it to make decisions.
type Journal struct{ db *sql.DB }

//go:embed migrations/*.sql
var migrationFS embed.FS

// Run is one recorded orchestrator invocation.
type Run struct {
	ID         int64
	Kind       api.RunKind
	Target     api.Target
	Status     api.RunStatus
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}
	if _, err := j.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) Ping(ctx context.Context) error {
	if j.db == nil {
		return errors.New("journal not initialized")
	}
	return j.db.PingContext(ctx)
}

// Record stores one finished run.
func (j *Journal) Record(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (kind, target, status, detail, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(r.Kind), string(r.Target), string(r.Status), r.Detail, r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the newest runs, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, target, status, detail, started_at, finished_at FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		var kind, target, status string
		if err := rows.Scan(&r.ID, &kind, &target, &status, &r.Detail, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Kind = api.RunKind(kind)
		r.Target = api.Target(target)
		r.Status = api.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
