package reporter

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/penwyp/svnlogstats/model"
)

//go:embed schema.sql
var schemaFS embed.FS

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// SQLite stores revisions in a SQLite database. Re-importing a revision replaces it.
type SQLite struct {
	ctx context.Context
	db  *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && !isMemory(path) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, failure("failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, failure("failed to open database", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(time.Minute)

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, failure("failed to apply schema", err)
	}
	return &SQLite{ctx: ctx, db: db}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || len(path) >= 5 && path[:5] == "file:"
}

func applySchema(ctx context.Context, db *sql.DB) error {
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for queries.
func (s *SQLite) DB() *sql.DB { return s.db }

// Report implements Reporter. Each revision is written in its own transaction.
func (s *SQLite) Report(rev *model.Revision) error {
	tx, err := s.db.BeginTx(s.ctx, nil)
	if err != nil {
		return failure("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.writeRevision(tx, rev); err != nil {
		return failure(fmt.Sprintf("failed to store revision r%d", rev.ID), err)
	}
	if err = tx.Commit(); err != nil {
		return failure("failed to commit transaction", err)
	}
	return nil
}

func (s *SQLite) writeRevision(tx *sql.Tx, rev *model.Revision) error {
	// 先删除旧数据；连接被回收后 foreign_keys 可能未开启，子表显式清理
	for _, table := range []string{"file_changes", "revision_issues", "revision_projects"} {
		if _, err := tx.ExecContext(s.ctx, `DELETE FROM `+table+` WHERE revision_id = ?`, rev.ID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(s.ctx, `DELETE FROM revisions WHERE id = ?`, rev.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(s.ctx,
		`INSERT INTO revisions (id, author, timestamp, comment, merge_status, branch_action, branch_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.Author, rev.Timestamp.Format(time.RFC3339), rev.Comment,
		rev.MergeStatus.String(), rev.BranchAction, rev.BranchName,
	); err != nil {
		return err
	}

	for _, fc := range rev.Files() {
		var fromPath sql.NullString
		var fromRev sql.NullInt64
		if fc.Copied() {
			fromPath = sql.NullString{String: fc.FromPath, Valid: true}
			fromRev = sql.NullInt64{Int64: int64(fc.FromRevision), Valid: true}
		}
		if _, err := tx.ExecContext(s.ctx,
			`INSERT INTO file_changes (revision_id, path, change_type, in_manifest, is_binary,
			     from_path, from_revision, lines_added, lines_removed, lines_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rev.ID, fc.Filename, fc.ChangeType.Code(), fc.InManifest, fc.Binary,
			fromPath, fromRev, fc.LinesAdded, fc.LinesRemoved, fc.LinesModified,
		); err != nil {
			return err
		}
	}

	for _, issue := range rev.Issues.Values() {
		if _, err := tx.ExecContext(s.ctx,
			`INSERT INTO revision_issues (revision_id, issue) VALUES (?, ?)`, rev.ID, issue); err != nil {
			return err
		}
	}
	for _, project := range rev.Projects.Values() {
		if _, err := tx.ExecContext(s.ctx,
			`INSERT INTO revision_projects (revision_id, project) VALUES (?, ?)`, rev.ID, project); err != nil {
			return err
		}
	}
	return nil
}

// Flush implements Reporter. Writes are committed per revision, so there is nothing
// buffered.
func (s *SQLite) Flush() error {
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return failure("failed to close database", s.db.Close())
}
