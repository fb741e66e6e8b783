// Package enrich combines the wiki source with the text analyzer: it resolves
// search hits and builds fully analyzed article views.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/wikireader/pkg/analysis"
	"github.com/japaniel/wikireader/pkg/wiki"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
	// MaxSuggestions bounds the options reported for an ambiguous title.
	MaxSuggestions = 5

	defaultConcurrency = 5
)

// ErrArticleNotFound is returned when a title does not resolve to an article.
var ErrArticleNotFound = errors.New("article not found")

// DisambiguationError reports an ambiguous title with a few candidate titles.
type DisambiguationError struct {
	Title       string
	Suggestions []string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("%q is ambiguous; try one of %v", e.Title, e.Suggestions)
}

// Source fetches pages. *wiki.Client implements it.
type Source interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
	Page(ctx context.Context, title string, autoSuggest bool) (*wiki.Page, error)
	// Resolve returns only the id, title and URL of a page.
	Resolve(ctx context.Context, title string) (*wiki.Page, error)
}

// SearchHit is one search result. PageID and URL are nil when the candidate
// could not be resolved to a concrete page.
type SearchHit struct {
	Title  string  `json:"title"`
	PageID *int    `json:"pageid"`
	URL    *string `json:"url"`
}

// AnalyzedArticle is a fetched page together with its text analysis.
type AnalyzedArticle struct {
	Title                 string               `json:"title"`
	Summary               string               `json:"summary"`
	FullURL               string               `json:"full_url"`
	Content               string               `json:"content"`
	References            []string             `json:"references"`
	URL                   string               `json:"url"`
	WordCount             int                  `json:"word_count"`
	FrequentWords         []analysis.WordCount `json:"frequent_words"`
	SentimentPolarity     float64              `json:"sentiment_polarity"`
	SentimentSubjectivity float64              `json:"sentiment_subjectivity"`
	SentimentLabel        string               `json:"sentiment_label"`
}

// Service orchestrates fetch and analysis.
type Service struct {
	source   Source
	analyzer *analysis.Analyzer

	// Concurrency bounds parallel page lookups while resolving search hits.
	Concurrency int
	Logger      *log.Logger
}

// NewService creates a Service. A nil analyzer uses the default lexicon.
func NewService(source Source, analyzer *analysis.Analyzer) *Service {
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(nil)
	}
	return &Service{source: source, analyzer: analyzer, Concurrency: defaultConcurrency}
}

// SearchArticles returns up to limit hits for query. Limit is clamped to
// [1, MaxSearchLimit]. A failing source yields an empty result rather than an
// error; a hit that cannot be resolved keeps its title with no page id or URL.
func (s *Service) SearchArticles(ctx context.Context, query string, limit int) []SearchHit {
	limit = clampLimit(limit)

	titles, err := s.source.Search(ctx, query, limit)
	if err != nil {
		s.warn("search failed", "query", query, "err", err)
		return []SearchHit{}
	}
	if len(titles) > limit {
		titles = titles[:limit]
	}

	hits := make([]SearchHit, len(titles))
	var g errgroup.Group
	g.SetLimit(max(1, s.Concurrency))
	for i, title := range titles {
		g.Go(func() error {
			hits[i] = s.resolve(ctx, title)
			return nil
		})
	}
	_ = g.Wait()
	return hits
}

func (s *Service) resolve(ctx context.Context, title string) SearchHit {
	if ctx.Err() != nil {
		return SearchHit{Title: title}
	}
	page, err := s.source.Resolve(ctx, title)
	if err != nil {
		s.debug("unresolved search hit", "title", title, "err", err)
		return SearchHit{Title: title}
	}
	id, url := page.PageID, page.URL
	return SearchHit{Title: page.Title, PageID: &id, URL: &url}
}

// GetArticleDetails fetches title (with auto-suggest) and analyzes its content.
//
// The error is ErrArticleNotFound or a *DisambiguationError. Transient source
// failures are logged and reported as ErrArticleNotFound.
func (s *Service) GetArticleDetails(ctx context.Context, title string) (*AnalyzedArticle, error) {
	page, err := s.source.Page(ctx, title, true)
	if err != nil {
		var dis *wiki.DisambiguationError
		switch {
		case errors.Is(err, wiki.ErrPageNotFound):
			return nil, ErrArticleNotFound
		case errors.As(err, &dis):
			suggestions := dis.Options
			if len(suggestions) > MaxSuggestions {
				suggestions = suggestions[:MaxSuggestions]
			}
			return nil, &DisambiguationError{Title: title, Suggestions: append([]string{}, suggestions...)}
		default:
			s.warn("fetching article failed", "title", title, "err", err)
			return nil, ErrArticleNotFound
		}
	}

	res := s.analyzer.Analyze(page.Content)
	refs := page.References
	if refs == nil {
		refs = []string{}
	}
	return &AnalyzedArticle{
		Title:                 page.Title,
		Summary:               page.Summary,
		FullURL:               page.URL,
		Content:               page.Content,
		References:            refs,
		URL:                   page.URL,
		WordCount:             res.WordCount,
		FrequentWords:         res.FrequentWords,
		SentimentPolarity:     res.Sentiment.Polarity,
		SentimentSubjectivity: res.Sentiment.Subjectivity,
		SentimentLabel:        res.Sentiment.Label,
	}, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

func (s *Service) warn(msg string, keyvals ...interface{}) {
	if s.Logger != nil {
		s.Logger.Warn(msg, keyvals...)
	}
}

func (s *Service) debug(msg string, keyvals ...interface{}) {
	if s.Logger != nil {
		s.Logger.Debug(msg, keyvals...)
	}
}
