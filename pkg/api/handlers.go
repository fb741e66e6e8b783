package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/japaniel/wikireader/pkg/db"
	"github.com/japaniel/wikireader/pkg/enrich"
)

type errorBody struct {
	Detail      string   `json:"detail"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// intParam parses an optional integer query parameter within [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return v, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if n := utf8.RuneCountInString(query); n < 1 || n > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be between 1 and %d characters", maxQueryLength))
		return
	}
	limit, err := intParam(r, "limit", enrich.DefaultSearchLimit, 1, enrich.MaxSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.enricher.SearchArticles(r.Context(), query, limit))
}

func (s *Server) handleArticleDetails(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	if strings.TrimSpace(title) == "" {
		writeError(w, http.StatusNotFound, "Artículo no encontrado.")
		return
	}

	article, err := s.enricher.GetArticleDetails(r.Context(), title)
	var dis *enrich.DisambiguationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, article)
	case errors.As(err, &dis):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Detail: fmt.Sprintf("'%s' es una página de desambiguación. Proporcione un título más específico. Opciones: %s",
				title, strings.Join(dis.Suggestions, ", ")),
			Suggestions: dis.Suggestions,
		})
	case errors.Is(err, enrich.ErrArticleNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Artículo '%s' no encontrado.", title))
	default:
		s.logError(r, "article details failed", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var in db.NewArticle
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid article payload: "+err.Error())
		return
	}
	a, err := s.store.CreateArticle(r.Context(), in)
	if errors.Is(err, db.ErrInvalidArticle) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.logError(r, "create article failed", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	skip, err := intParam(r, "skip", 0, 0, math.MaxInt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", db.DefaultListLimit, 1, db.MaxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	articles, err := s.store.ListArticles(r.Context(), skip, limit)
	if err != nil {
		s.logError(r, "list articles failed", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func articleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "article id must be an integer")
		return 0, false
	}
	return id, true
}

// storeResult writes a single-article outcome.
func (s *Server) storeResult(w http.ResponseWriter, r *http.Request, a *db.Article, err error, op string) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Artículo no encontrado.")
		return
	}
	if err != nil {
		s.logError(r, op+" failed", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	a, err := s.store.GetArticle(r.Context(), id)
	s.storeResult(w, r, a, err, "get article")
}

// handleUpdateArticle applies personal_notes from the body. A missing key
// leaves the notes alone and null clears them; other fields are ignored.
func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid update payload: "+err.Error())
		return
	}

	raw, present := body["personal_notes"]
	if !present {
		a, err := s.store.GetArticle(r.Context(), id)
		s.storeResult(w, r, a, err, "get article")
		return
	}

	var notes *string
	if err := json.Unmarshal(raw, &notes); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "personal_notes must be a string or null")
		return
	}
	a, err := s.store.UpdateNotes(r.Context(), id, notes)
	s.storeResult(w, r, a, err, "update notes")
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	_, err := s.store.DeleteArticle(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Artículo no encontrado.")
		return
	}
	if err != nil {
		s.logError(r, "delete article failed", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
