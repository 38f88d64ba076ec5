package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sanonone/kektorgraph/pkg/catalog"
	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/persistence"
	"github.com/sanonone/kektorgraph/pkg/shard"
)

// insertResponse is the body of a successful edge insert.
type insertResponse struct {
	ID  string `json:"_id"`
	Ref string `json:"_ref"`
}

type removeResponse struct {
	ID      string `json:"_id"`
	Removed bool   `json:"removed"`
}

func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("PUT /_db/{db}/_internal/traverser/edge", s.handleTraverserEdge)
	mux.HandleFunc("POST /_db/{db}/_api/edge/{collection}", s.handleInsertEdge)
	mux.HandleFunc("DELETE /_db/{db}/_api/edge/{collection}/{key}", s.handleRemoveEdge)
}

// checkDatabase answers 404 when the path names another database.
func (s *Server) checkDatabase(w http.ResponseWriter, r *http.Request) bool {
	if db := r.PathValue("db"); db != s.Engine.Database() {
		s.writeHTTPError(w, http.StatusNotFound, shard.ErrNumDatabaseNotFound, "database not found: "+db)
		return false
	}
	return true
}

func (s *Server) handleTraverserEdge(w http.ResponseWriter, r *http.Request) {
	if !s.checkDatabase(w, r) {
		return
	}

	var req shard.EdgeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, persistence.MaxPayloadSize)).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, shard.ErrNumBadParameter, "invalid JSON body: "+err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get(requestIDHeader)
	}

	resp, err := s.Engine.ReadEdges(r.Context(), &req)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, resp)
}

func (s *Server) handleInsertEdge(w http.ResponseWriter, r *http.Request) {
	if !s.checkDatabase(w, r) {
		return
	}

	name := r.PathValue("collection")
	cid, err := s.Catalog.ID(name)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, persistence.MaxPayloadSize))
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, shard.ErrNumBadParameter, "could not read body: "+err.Error())
		return
	}

	ref, err := s.Engine.InsertEdge(body, cid)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusCreated, insertResponse{
		ID:  s.Catalog.ResolveID(ref),
		Ref: ref.String(),
	})
}

// handleRemoveEdge soft-deletes an edge. The optional "at" query parameter
// sets the deletion time in unix nanoseconds.
func (s *Server) handleRemoveEdge(w http.ResponseWriter, r *http.Request) {
	if !s.checkDatabase(w, r) {
		return
	}

	cid, err := s.Catalog.ID(r.PathValue("collection"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	var at int64
	if v := r.URL.Query().Get("at"); v != "" {
		at, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, shard.ErrNumBadParameter, "at must be unix nanoseconds")
			return
		}
	}

	ref := document.Reference{Collection: cid, Key: r.PathValue("key")}
	if err := s.Engine.RemoveEdge(ref, at); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, removeResponse{ID: s.Catalog.ResolveID(ref), Removed: true})
}

// writeEngineError maps engine and catalog errors to HTTP status and error numbers.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, num := http.StatusInternalServerError, shard.ErrNumInternal
	switch {
	case errors.Is(err, shard.ErrBadRequest), errors.Is(err, document.ErrMalformed):
		status, num = http.StatusBadRequest, shard.ErrNumBadParameter
	case errors.Is(err, shard.ErrDatabaseNotFound):
		status, num = http.StatusNotFound, shard.ErrNumDatabaseNotFound
	case errors.Is(err, shard.ErrEdgeNotFound):
		status, num = http.StatusNotFound, shard.ErrNumEdgeNotFound
	case errors.Is(err, catalog.ErrNotFound):
		status, num = http.StatusNotFound, shard.ErrNumCollectionNotFound
	case errors.Is(err, shard.ErrEdgeExists):
		status, num = http.StatusConflict, shard.ErrNumConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", r.Header.Get(requestIDHeader), "path", r.URL.Path, "error", err)
	}
	s.writeHTTPError(w, status, num, err.Error())
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, errorNum int, message string) {
	s.writeHTTPResponse(w, statusCode, shard.ErrorBody{Error: true, ErrorNum: errorNum, ErrorMessage: message})
}
