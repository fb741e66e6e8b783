package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/japaniel/wikireader/pkg/analysis"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

var (
	// ErrNotFound is returned when no article has the requested id.
	ErrNotFound = errors.New("article not found")
	// ErrInvalidArticle wraps every validation failure of CreateArticle.
	ErrInvalidArticle = errors.New("invalid article")
)

// DBExecutor is an interface that allows helpers to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const articleColumns = `id, wikipedia_title, wikipedia_url, processed_summary, word_count, frequent_words,
	sentiment_polarity, sentiment_subjectivity, sentiment_label, user_id, created_at, saved_at, personal_notes`

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArticle, fmt.Sprintf(format, args...))
}

func validateNewArticle(a NewArticle) error {
	if strings.TrimSpace(a.WikipediaTitle) == "" {
		return invalid("wikipedia_title must be non-empty")
	}
	if u, err := url.Parse(a.WikipediaURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("wikipedia_url %q is not an http(s) URL", a.WikipediaURL)
	}
	if a.UserID == 0 {
		return invalid("user_id is required")
	}
	if a.WordCount < 0 {
		return invalid("word_count must be >= 0, got %d", a.WordCount)
	}
	if len(a.FrequentWords) > analysis.MaxFrequentWords {
		return invalid("at most %d frequent words, got %d", analysis.MaxFrequentWords, len(a.FrequentWords))
	}
	for _, fw := range a.FrequentWords {
		if fw.Word == "" || fw.Count < 1 {
			return invalid("frequent word %q has count %d", fw.Word, fw.Count)
		}
	}
	if p := a.SentimentPolarity; p != nil && (math.IsNaN(*p) || *p < -1 || *p > 1) {
		return invalid("sentiment_polarity %v outside [-1, 1]", *p)
	}
	if s := a.SentimentSubjectivity; s != nil && (math.IsNaN(*s) || *s < 0 || *s > 1) {
		return invalid("sentiment_subjectivity %v outside [0, 1]", *s)
	}
	return nil
}

// CreateArticle validates and stores a snapshot, returning it with its id
// and timestamps. The label is derived from the polarity.
func (s *Store) CreateArticle(ctx context.Context, in NewArticle) (*Article, error) {
	if err := validateNewArticle(in); err != nil {
		return nil, err
	}
	fw, err := EncodeFrequentWords(in.FrequentWords)
	if err != nil {
		return nil, err
	}
	var label *string
	if in.SentimentPolarity != nil {
		l := analysis.Label(*in.SentimentPolarity)
		label = &l
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, s.dialect.rebind(`INSERT INTO articles (
	wikipedia_title, wikipedia_url, processed_summary, word_count, frequent_words,
	sentiment_polarity, sentiment_subjectivity, sentiment_label, user_id, created_at, saved_at, personal_notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		strings.TrimSpace(in.WikipediaTitle), in.WikipediaURL, in.ProcessedSummary, in.WordCount, fw,
		in.SentimentPolarity, in.SentimentSubjectivity, label, in.UserID, now, now, in.PersonalNotes,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}

	a, err := s.getArticle(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

// GetArticle returns the article with id, or ErrNotFound.
func (s *Store) GetArticle(ctx context.Context, id int64) (*Article, error) {
	return s.getArticle(ctx, s.db, id)
}

func (s *Store) getArticle(ctx context.Context, ex DBExecutor, id int64) (*Article, error) {
	row := ex.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+articleColumns+` FROM articles WHERE id = ?`), id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return a, nil
}

// ListArticles returns a page of articles in insertion order. Negative skip
// is treated as 0 and limit is clamped to [1, MaxListLimit].
func (s *Store) ListArticles(ctx context.Context, skip, limit int) ([]Article, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT `+articleColumns+` FROM articles ORDER BY id LIMIT ? OFFSET ?`),
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	out := []Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("list articles: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateNotes replaces the personal notes of an article; nil clears them.
// No other column is touched.
func (s *Store) UpdateNotes(ctx context.Context, id int64, notes *string) (*Article, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.dialect.rebind(`UPDATE articles SET personal_notes = ? WHERE id = ?`), notes, id)
	if err != nil {
		return nil, fmt.Errorf("update notes %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	a, err := s.getArticle(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteArticle removes an article and returns its last state.
func (s *Store) DeleteArticle(ctx context.Context, id int64) (*Article, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	a, err := s.getArticle(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM articles WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("delete article %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

// CountArticles returns the number of stored articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(sc scanner) (*Article, error) {
	var a Article
	var summary sql.NullString
	var fw []byte
	var pol, subj sql.NullFloat64
	var label, notes sql.NullString
	if err := sc.Scan(&a.ID, &a.WikipediaTitle, &a.WikipediaURL, &summary, &a.WordCount, &fw,
		&pol, &subj, &label, &a.UserID, &a.CreatedAt, &a.SavedAt, &notes); err != nil {
		return nil, err
	}
	a.ProcessedSummary = summary.String
	a.FrequentWords = DecodeFrequentWords(fw)
	if pol.Valid {
		a.SentimentPolarity = &pol.Float64
	}
	if subj.Valid {
		a.SentimentSubjectivity = &subj.Float64
	}
	if label.Valid {
		a.SentimentLabel = &label.String
	}
	if notes.Valid {
		a.PersonalNotes = &notes.String
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.SavedAt = a.SavedAt.UTC()
	return &a, nil
}
