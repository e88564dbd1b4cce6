package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apimockr/apimockr/pkg/httputil"
	"github.com/apimockr/apimockr/pkg/resource"
	"github.com/apimockr/apimockr/pkg/validation"
)

// globalSearchCap bounds each result group of the cross-resource search.
const globalSearchCap = 10

func (s *Server) handleList(c *resource.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := c.List(r.Context(), r.URL.Query())
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(result.Pagination.Total))
		httputil.WriteOK(w, result)
	}
}

func (s *Server) handleGet(c *resource.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := c.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		httputil.WriteOK(w, rec)
	}
}

func (s *Server) handleCreate(c *resource.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := s.decodeBody(w, r)
		if !ok {
			return
		}
		if result := validation.ValidateCreate(c.Schema().Name, body); !result.Valid {
			httputil.WriteErrorWithDetails(w, http.StatusBadRequest,
				"Validation Error", "Request body failed validation", result.Details())
			return
		}

		rec, err := c.Create(r.Context(), body)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		httputil.WriteCreated(w, rec)
	}
}

func (s *Server) handleUpdate(c *resource.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := s.decodeBody(w, r)
		if !ok {
			return
		}
		if result := validation.ValidateUpdate(c.Schema().Name, body); !result.Valid {
			httputil.WriteErrorWithDetails(w, http.StatusBadRequest,
				"Validation Error", "Request body failed validation", result.Details())
			return
		}

		rec, err := c.Update(r.Context(), chi.URLParam(r, "id"), body)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		httputil.WriteOK(w, rec)
	}
}

func (s *Server) handleDelete(c *resource.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.writeErr(w, r, err)
			return
		}
		httputil.WriteNoContent(w)
	}
}

func (s *Server) handleSearch(c *resource.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := c.Search(r.Context(), r.URL.Query())
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		httputil.WriteOK(w, result)
	}
}

// handleRelated serves the parent-scoped child listings, e.g. a user's
// posts.
func (s *Server) handleRelated(parent *resource.Controller, child *resource.Schema, fk string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := parent.ListRelated(r.Context(), chi.URLParam(r, "id"), child, fk, r.URL.Query())
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(result.Pagination.Total))
		httputil.WriteOK(w, result)
	}
}

// handleGlobalSearch runs the free-text search across every selected
// record type, returning capped per-type groups and a summed total.
func (s *Server) handleGlobalSearch(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	term := strings.TrimSpace(values.Get("q"))
	if term == "" {
		httputil.WriteBadRequest(w, `Query parameter "q" is required`)
		return
	}

	if ms, err := strconv.Atoi(values.Get("_delay")); err == nil && ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}

	searchType := values.Get("type")
	if searchType == "" {
		searchType = "all"
	}

	groups := make(map[string][]resource.Record, len(resource.Schemas))
	total := 0
	for _, sch := range resource.Schemas {
		if searchType != "all" && searchType != sch.Name {
			continue
		}

		sub := url.Values{
			"q":     {term},
			"limit": {strconv.Itoa(globalSearchCap)},
		}
		result, err := s.controllers[sch.Name].Search(r.Context(), sub)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		groups[sch.Name] = result.Results
		total += len(result.Results)
	}

	s.log.Info("search performed", "query", term, "type", searchType, "total", total)
	httputil.WriteOK(w, map[string]any{
		"query":   term,
		"type":    searchType,
		"total":   total,
		"results": groups,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReset reseeds the store on demand, same as the nightly schedule.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.reset(r.Context()); err != nil {
		s.log.Error("manual reset failed", "error", err)
		httputil.WriteInternalError(w, "Reset failed")
		return
	}
	s.log.Info("manual reset complete")
	httputil.WriteOK(w, map[string]any{
		"status":  "ok",
		"message": "Database reset to seed data",
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFound(w,
		fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path))
}

// decodeBody reads a JSON object body. On failure it writes the 400
// envelope and reports false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (resource.Record, bool) {
	var body resource.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteBadRequest(w, "Invalid JSON body")
		return nil, false
	}
	return body, true
}

// writeErr maps controller errors onto the HTTP envelope. Unexpected
// failures are logged in full and surfaced generically.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var sc resource.StatusCodeError
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusBadRequest:
			httputil.WriteBadRequest(w, sc.Error())
			return
		case http.StatusNotFound:
			httputil.WriteNotFound(w, sc.Error())
			return
		case http.StatusConflict:
			httputil.WriteConflict(w, sc.Error())
			return
		}
	}

	s.log.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	httputil.WriteInternalError(w, "An unexpected error occurred")
}
