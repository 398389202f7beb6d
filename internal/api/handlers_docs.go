package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/pipeline"
	"github.com/dgallion1/hilens/internal/preview"
	"github.com/dgallion1/hilens/internal/store"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	_, info, err := s.svc.Ingest(r.Context(), filename, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if !info.Cached {
		code = http.StatusCreated
	}
	writeJSON(w, code, info)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.svc.List()})
}

// document resolves {docID}, writing the error response when it fails.
func (s *Server) document(w http.ResponseWriter, r *http.Request) (*store.Document, bool) {
	doc, err := s.svc.Document(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return doc, true
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": doc.Info(),
		"toc":      doc.ChunkSet.TOC,
	})
}

func (s *Server) handleChunkSet(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.ChunkSet)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if !s.svc.Evict(r.Context(), docID) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func labelParam(r *http.Request) string {
	raw := chi.URLParam(r, "label")
	if l, err := url.PathUnescape(raw); err == nil {
		return l
	}
	return raw
}

// region resolves {docID} and {label} for kind.
func (s *Server) region(w http.ResponseWriter, r *http.Request, kind chunkset.Kind) (*store.Document, *chunkset.Region, bool) {
	doc, ok := s.document(w, r)
	if !ok {
		return nil, nil, false
	}
	reg, err := s.svc.Region(doc, kind, labelParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return nil, nil, false
	}
	return doc, reg, true
}

func (s *Server) handleRegion(kind chunkset.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, reg, ok := s.region(w, r, kind)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, reg)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	_, reg, ok := s.region(w, r, chunkset.KindTable)
	if !ok {
		return
	}
	if reg.PreviewMD == "" {
		s.writeError(w, r, fmt.Errorf("preview for table %s: %w", reg.Label, pipeline.ErrNotFound))
		return
	}
	html, err := preview.HTML(reg.PreviewMD)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
