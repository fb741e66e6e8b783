package db

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openRaw(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestInitDBCreatesSchema verifies a fresh database gets the articles table
// with every column the repository reads.
func TestInitDBCreatesSchema(t *testing.T) {
	dbConn := openRaw(t)
	if err := InitDB(context.Background(), dbConn, SQLite); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	rows, err := dbConn.Query("PRAGMA table_info(articles)")
	if err != nil {
		t.Fatalf("pragmas: %v", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	for _, want := range []string{
		"id", "wikipedia_title", "wikipedia_url", "processed_summary", "word_count", "frequent_words",
		"sentiment_polarity", "sentiment_subjectivity", "sentiment_label", "user_id",
		"created_at", "saved_at", "personal_notes",
	} {
		if !cols[want] {
			t.Errorf("articles is missing column %q (have %v)", want, cols)
		}
	}

	var idx string
	if err := dbConn.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_articles_user_id'").Scan(&idx); err != nil {
		t.Fatalf("user index missing: %v", err)
	}
}

func TestInitDBIsIdempotent(t *testing.T) {
	dbConn := openRaw(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := InitDB(ctx, dbConn, SQLite); err != nil {
			t.Fatalf("InitDB run %d: %v", i, err)
		}
	}

	var n, top int
	if err := dbConn.QueryRow("SELECT COUNT(*), MAX(version) FROM schema_migrations").Scan(&n, &top); err != nil {
		t.Fatalf("schema_migrations: %v", err)
	}
	if n != len(migrations) || top != SchemaVersion() {
		t.Fatalf("expected %d migrations up to v%d, got %d up to v%d", len(migrations), SchemaVersion(), n, top)
	}
}

func TestInitDBAppliesOnlyPendingMigrations(t *testing.T) {
	dbConn := openRaw(t)
	ctx := context.Background()
	if err := InitDB(ctx, dbConn, SQLite); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	// Pretend v2 never ran.
	if _, err := dbConn.Exec("DROP INDEX idx_articles_user_id"); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	if _, err := dbConn.Exec("DELETE FROM schema_migrations WHERE version = 2"); err != nil {
		t.Fatalf("forget v2: %v", err)
	}
	if _, err := dbConn.Exec("INSERT INTO articles (wikipedia_title, wikipedia_url, user_id, created_at, saved_at) VALUES ('A', 'u', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := InitDB(ctx, dbConn, SQLite); err != nil {
		t.Fatalf("InitDB rerun: %v", err)
	}
	var idx string
	if err := dbConn.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_articles_user_id'").Scan(&idx); err != nil {
		t.Fatalf("v2 not reapplied: %v", err)
	}
	var n int
	if err := dbConn.QueryRow("SELECT COUNT(*) FROM articles").Scan(&n); err != nil || n != 1 {
		t.Fatalf("existing rows lost: n=%d err=%v", n, err)
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM articles WHERE id = ? AND user_id = ?"
	if got := SQLite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	if got, want := Postgres.rebind(q), "SELECT * FROM articles WHERE id = $1 AND user_id = $2"; got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestParseDSN(t *testing.T) {
	cases := []struct {
		dsn     string
		dialect Dialect
		driver  string
		memory  bool
	}{
		{"postgres://u:p@localhost/db", Postgres, "postgres://u:p@localhost/db", false},
		{"postgresql://localhost/db?sslmode=disable", Postgres, "postgresql://localhost/db?sslmode=disable", false},
		{"", SQLite, ":memory:", true},
		{":memory:", SQLite, ":memory:", true},
		{"sqlite://:memory:", SQLite, ":memory:", true},
		{"sqlite:///./test.db", SQLite, "./test.db?_journal_mode=WAL&_busy_timeout=5000", false},
		{"data/articles.db", SQLite, "data/articles.db?_journal_mode=WAL&_busy_timeout=5000", false},
		{"file:test.db?cache=shared", SQLite, "file:test.db?cache=shared", false},
	}
	for _, c := range cases {
		d, driver, memory := parseDSN(c.dsn)
		if d != c.dialect || driver != c.driver || memory != c.memory {
			t.Errorf("parseDSN(%q) = (%v, %q, %v), want (%v, %q, %v)", c.dsn, d, driver, memory, c.dialect, c.driver, c.memory)
		}
	}
}
