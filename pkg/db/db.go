package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the SQL flavour of the underlying engine.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// rebind rewrites ? placeholders for dialects that use numbered parameters.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is the article repository. Safe for concurrent use; isolation is
// left to the database engine.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open connection. The schema must already be migrated.
func New(conn *sql.DB, dialect Dialect) *Store {
	return &Store{db: conn, dialect: dialect}
}

// Open connects to dsn and migrates the schema. postgres:// and
// postgresql:// URLs use Postgres; anything else is a SQLite path, optionally
// prefixed with sqlite://.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dialect, driverDSN, memory := parseDSN(dsn)

	conn, err := sql.Open(dialect.String(), driverDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := InitDB(ctx, conn, dialect); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return New(conn, dialect), nil
}

func parseDSN(dsn string) (dialect Dialect, driverDSN string, memory bool) {
	dsn = strings.TrimSpace(dsn)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return Postgres, dsn, false
	}
	path := dsn
	for _, prefix := range []string{"sqlite:///", "sqlite://"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	if path == "" || path == ":memory:" {
		return SQLite, ":memory:", true
	}
	if strings.HasPrefix(path, "file:") {
		return SQLite, path, strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
	}
	return SQLite, path + "?_journal_mode=WAL&_busy_timeout=5000", false
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the SQL flavour in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
