package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type migration struct {
	version  int
	name     string
	sqlite   string
	postgres string
}

// migrations are applied in order; never edit one that has shipped.
var migrations = []migration{
	{
		version: 1,
		name:    "create articles",
		sqlite: `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	wikipedia_title TEXT NOT NULL,
	wikipedia_url TEXT NOT NULL,
	processed_summary TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL DEFAULT 0,
	frequent_words TEXT,
	sentiment_polarity REAL,
	sentiment_subjectivity REAL,
	sentiment_label TEXT,
	user_id INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	saved_at TIMESTAMP NOT NULL,
	personal_notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_articles_wikipedia_title ON articles(wikipedia_title)`,
		postgres: `
CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	wikipedia_title TEXT NOT NULL,
	wikipedia_url TEXT NOT NULL,
	processed_summary TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL DEFAULT 0,
	frequent_words JSONB,
	sentiment_polarity DOUBLE PRECISION,
	sentiment_subjectivity DOUBLE PRECISION,
	sentiment_label TEXT,
	user_id BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL,
	personal_notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_articles_wikipedia_title ON articles(wikipedia_title)`,
	},
	{
		version:  2,
		name:     "index articles by user",
		sqlite:   `CREATE INDEX IF NOT EXISTS idx_articles_user_id ON articles(user_id)`,
		postgres: `CREATE INDEX IF NOT EXISTS idx_articles_user_id ON articles(user_id)`,
	},
}

// SchemaVersion is the version InitDB migrates to.
func SchemaVersion() int { return migrations[len(migrations)-1].version }

// InitDB applies pending migrations. Each migration runs in its own
// transaction and is recorded in schema_migrations, so rerunning is a no-op.
func InitDB(ctx context.Context, conn *sql.DB, dialect Dialect) error {
	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := applyMigration(ctx, conn, dialect, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.DB) (map[int]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()
	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, conn *sql.DB, dialect Dialect, m migration) error {
	script := m.sqlite
	if dialect == Postgres {
		script = m.postgres
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range strings.Split(script, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		dialect.rebind(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`),
		m.version, m.name, time.Now().UTC(),
	); err != nil {
		return err
	}
	return tx.Commit()
}
