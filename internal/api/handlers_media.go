package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/geom"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Write(png)
}

func (s *Server) handleRegionImage(kind chunkset.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, reg, ok := s.region(w, r, kind)
		if !ok {
			return
		}
		var dpi float64
		if v := r.URL.Query().Get("dpi"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				jsonError(w, "dpi must be a number", http.StatusBadRequest)
				return
			}
			dpi = f
		}
		width, ok := intParam(r, "width")
		if !ok {
			jsonError(w, "width must be a non-negative integer", http.StatusBadRequest)
			return
		}

		png, err := s.svc.CropRegion(r.Context(), doc, kind, reg.Label, dpi, width)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writePNG(w, png)
	}
}

type cropRequest struct {
	Kind      string    `json:"kind"`
	PageIndex int       `json:"page_index"`
	BBox      geom.Rect `json:"bbox"`
	DPI       float64   `json:"dpi"`
}

func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	var req cropRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	kind := chunkset.KindTable
	if req.Kind != "" {
		k, ok := chunkset.ParseKind(req.Kind)
		if !ok {
			jsonError(w, fmt.Sprintf("unknown kind %q", req.Kind), http.StatusBadRequest)
			return
		}
		kind = k
	}

	png, err := s.svc.Crop(r.Context(), doc, kind, req.PageIndex, req.BBox, req.DPI)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePNG(w, png)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	// Buffer so a failed export still gets a JSON error.
	var buf bytes.Buffer
	if err := s.svc.Export(doc, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	name := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename)) + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
