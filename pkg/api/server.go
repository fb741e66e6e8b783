// Package api exposes the search, analysis and saved-article endpoints over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/rs/cors"

	"github.com/japaniel/wikireader/pkg/db"
	"github.com/japaniel/wikireader/pkg/enrich"
)

const (
	WelcomeMessage = "¡Bienvenido a la API del analizador de contenido de Wikipedia!"

	maxQueryLength = 100
	maxBodySize    = 1 << 20
)

// Enricher searches and analyzes articles. *enrich.Service implements it.
type Enricher interface {
	SearchArticles(ctx context.Context, query string, limit int) []enrich.SearchHit
	GetArticleDetails(ctx context.Context, title string) (*enrich.AnalyzedArticle, error)
}

// ArticleStore persists article snapshots. *db.Store implements it.
type ArticleStore interface {
	CreateArticle(ctx context.Context, in db.NewArticle) (*db.Article, error)
	GetArticle(ctx context.Context, id int64) (*db.Article, error)
	ListArticles(ctx context.Context, skip, limit int) ([]db.Article, error)
	UpdateNotes(ctx context.Context, id int64, notes *string) (*db.Article, error)
	DeleteArticle(ctx context.Context, id int64) (*db.Article, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the middleware chain.
type Options struct {
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	Logger      *log.Logger
}

// Server routes HTTP requests to the enricher and the store.
type Server struct {
	enricher Enricher
	store    ArticleStore
	opts     Options
	logger   *log.Logger
	limiter  *clientLimiter
}

func NewServer(enricher Enricher, store ArticleStore, opts Options) *Server {
	s := &Server{enricher: enricher, store: store, opts: opts, logger: opts.Logger}
	if opts.RateLimit > 0 {
		s.limiter = newClientLimiter(opts.RateLimit, max(1, opts.RateBurst))
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/v1/wikipedia/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/wikipedia/article/{title...}", s.handleArticleDetails)

	mux.HandleFunc("POST /api/v1/articles", s.handleCreateArticle)
	mux.HandleFunc("POST /api/v1/articles/{$}", s.handleCreateArticle)
	mux.HandleFunc("GET /api/v1/articles", s.handleListArticles)
	mux.HandleFunc("GET /api/v1/articles/{$}", s.handleListArticles)
	mux.HandleFunc("GET /api/v1/articles/{id}", s.handleGetArticle)
	mux.HandleFunc("PATCH /api/v1/articles/{id}", s.handleUpdateArticle)
	mux.HandleFunc("DELETE /api/v1/articles/{id}", s.handleDeleteArticle)

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.middleware(h)
	}
	h = s.recoverer(h)
	h = s.accessLog(h)
	h = requestID(h)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(h)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": WelcomeMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logError(r, "health check failed", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
