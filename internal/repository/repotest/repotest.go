// Package repotest opens throwaway sqlite databases carrying the full pipeline
// schema plus minimal avsdocs and users tables.
package repotest

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"entgo.io/ent/dialect"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

var userManagementDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	age_verified TEXT
)`,
	`CREATE TABLE IF NOT EXISTS avsdocs (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL,
	doc_url TEXT,
	doc_file_type TEXT,
	doc_approved TEXT,
	is_deleted BOOLEAN NOT NULL DEFAULT 0
)`,
}

// Discard is a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Open returns a migrated sqlite database in t.TempDir.
func Open(t *testing.T) *repository.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avs.db")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range userManagementDDL {
		if _, err := sqlDB.Exec(stmt); err != nil {
			t.Fatalf("create user tables: %v", err)
		}
	}
	db := repository.Wrap(sqlDB, dialect.SQLite)
	if err := repository.EnsureSchema(context.Background(), db, Discard()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// AddUser inserts a users row; verified sets age_verified to YES.
func AddUser(t *testing.T, db *repository.DB, id int64, verified bool) {
	t.Helper()
	var flag any
	if verified {
		flag = repository.VerifiedFlag
	}
	if _, err := db.SQL().Exec(`INSERT INTO users (id, age_verified) VALUES (?, ?)`, id, flag); err != nil {
		t.Fatalf("insert user %d: %v", id, err)
	}
}

// Doc describes an avsdocs row to seed.
type Doc struct {
	ID       int64
	UserID   int64
	URL      string
	FileType string
	Approved bool
	Deleted  bool
}

func AddDoc(t *testing.T, db *repository.DB, d Doc) {
	t.Helper()
	var approved any
	if d.Approved {
		approved = repository.VerifiedFlag
	}
	_, err := db.SQL().Exec(
		`INSERT INTO avsdocs (id, user_id, doc_url, doc_file_type, doc_approved, is_deleted) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.URL, d.FileType, approved, d.Deleted,
	)
	if err != nil {
		t.Fatalf("insert doc %d: %v", d.ID, err)
	}
}

// Count returns the number of rows in table.
func Count(t *testing.T, db *repository.DB, table string) int {
	t.Helper()
	var n int
	if err := db.SQL().QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
