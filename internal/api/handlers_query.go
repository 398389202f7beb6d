package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dgallion1/hilens/internal/pipeline"
)

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	k, ok := intParam(r, "k")
	if !ok {
		jsonError(w, "k must be a non-negative integer", http.StatusBadRequest)
		return
	}
	scope, err := pipeline.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	hits, err := s.svc.Search(r.Context(), doc, q, k, scope)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": doc.ID,
		"query":  q,
		"scope":  scope,
		"hits":   hits,
	})
}

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.K < 0 {
		jsonError(w, "k must be a non-negative integer", http.StatusBadRequest)
		return
	}

	res, err := s.svc.Ask(r.Context(), doc, req.Question, req.K)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
