package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/engine"
	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/query"
	"github.com/hubenschmidt/go-tilesearch/render"
	"github.com/hubenschmidt/go-tilesearch/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	resp := InitResponse{
		Engine:         s.engine.BackendName(),
		MinMatches:     query.MinMatches,
		MaxMatches:     s.maxMatches,
		DefaultMatches: s.defaultMatches,
		MatchesStep:    s.matchesStep,
		Layers:         []string{render.ResultLayer, engine.ClickedPointLayer},
	}
	if m, ok := s.engine.Selection().Current(); ok {
		resp.Selection = &m.Point
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, core.Errorf("server.select", core.ErrInvalidRequest, "decode body: %v", err))
		return
	}
	if req.Lon == nil || req.Lat == nil {
		s.writeError(w, core.Errorf("server.select", core.ErrInvalidRequest, "lon and lat are required"))
		return
	}

	p := geo.NewPoint(*req.Lon, *req.Lat)
	if err := s.engine.Selection().Click(p); err != nil {
		s.writeError(w, err)
		return
	}
	s.view.Focus(p)
	writeJSON(w, http.StatusOK, viewResponse(s.view.Snapshot()))
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.engine.Selection().Clear()
	s.view.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, core.Errorf("server.search", core.ErrInvalidRequest, "decode body: %v", err))
		return
	}
	matches := s.defaultMatches
	if req.Matches != nil {
		matches = *req.Matches
	}

	out, err := s.engine.Run(r.Context(), matches)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rs := out.Result
	writeJSON(w, http.StatusOK, SearchResponse{
		RunID:             out.RunID,
		SeedID:            rs.SeedID,
		SeedTile:          rs.SeedTile,
		Count:             rs.Len(),
		BaseIDs:           rs.BaseIDs(),
		BaseTiles:         rs.BaseTiles(),
		Distances:         rs.Distances(),
		DistinctDistances: rs.DistinctDistances(),
		ElapsedMs:         out.Elapsed.Milliseconds(),
		Applied:           out.Applied,
		View:              viewResponse(s.view.Snapshot()),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewResponse(s.view.Snapshot()))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	matches := s.defaultMatches
	if v := r.URL.Query().Get("matches"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, core.Errorf("server.query", core.ErrInvalidRequest, "matches: %v", err))
			return
		}
		matches = n
	}

	stmt, err := s.engine.Preview(matches)
	if errors.Is(err, engine.ErrNoSQL) {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{
			Code:    "no_sql",
			Message: "The configured engine does not use SQL.",
			Detail:  err.Error(),
		})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Engine: s.engine.BackendName(),
		SQL:    stmt.SQL,
		Params: stmt.Params,
	})
}

func (s *Server) handleRunList(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []store.RunInfo{}
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

func (s *Server) handleRunGet(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.runs.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.runs.Summary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoSelection), errors.Is(err, core.ErrSearchInFlight):
		return http.StatusConflict
	case errors.Is(err, core.ErrAmbiguousSeed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrEngineUnavailable), errors.Is(err, core.ErrInvalidGeometry):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrEngineTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{
		Code:    core.Code(err),
		Message: core.UserMessage(err),
		Detail:  err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
