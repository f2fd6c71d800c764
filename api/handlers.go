package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// Health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
	}
	s.respondWithJSON(w, http.StatusOK, response)
}

// Index request/response types
type CreateIndexRequest struct {
	Mapping core.Mapping `json:"mapping"`
}

type IndexResponse struct {
	Name      string       `json:"name"`
	Mapping   core.Mapping `json:"mapping"`
	CreatedAt time.Time    `json:"created_at"`
}

// handleListIndices returns all indices
func (s *Server) handleListIndices(w http.ResponseWriter, r *http.Request) {
	infos := s.engine.ListIndices()

	response := make([]IndexResponse, len(infos))
	for i, info := range infos {
		response[i] = IndexResponse{
			Name:      info.Name,
			Mapping:   info.Mapping,
			CreatedAt: info.CreatedAt,
		}
	}

	s.respondWithJSON(w, http.StatusOK, response)
}

// handleCreateIndex creates a new image index
func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	indexName := mux.Vars(r)["index"]

	var req CreateIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.engine.CreateIndex(r.Context(), indexName, req.Mapping); err != nil {
		s.respondWithEngineError(w, err)
		return
	}

	info, err := s.engine.GetIndexInfo(indexName)
	if err != nil {
		s.respondWithEngineError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, IndexResponse{
		Name:      info.Name,
		Mapping:   info.Mapping,
		CreatedAt: info.CreatedAt,
	})
}

// handleDeleteIndex removes an index
func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	indexName := mux.Vars(r)["index"]

	if err := s.engine.DeleteIndex(r.Context(), indexName); err != nil {
		s.respondWithEngineError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{"acknowledged": "true"})
}

// Document request/response types
type IndexDocumentResponse struct {
	Index string `json:"index"`
	Type  string `json:"type"`
	ID    string `json:"id"`
}

// handleIndexDocument indexes a document under an explicit ID. The request
// body maps image field names to base64 image bytes; an optional "routing"
// query parameter sets the routing value.
func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.indexDocument(w, r, vars["index"], vars["type"], vars["id"])
}

// handleIndexDocumentAutoID indexes a document under a generated ID
func (s *Server) handleIndexDocumentAutoID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.indexDocument(w, r, vars["index"], vars["type"], uuid.New().String())
}

func (s *Server) indexDocument(w http.ResponseWriter, r *http.Request, indexName, docType, id string) {
	var fields map[string][]byte
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(fields) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "Document must contain at least one image field")
		return
	}

	routing := r.URL.Query().Get("routing")

	if err := s.engine.IndexImage(r.Context(), indexName, docType, id, routing, fields); err != nil {
		s.respondWithEngineError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, IndexDocumentResponse{
		Index: indexName,
		Type:  docType,
		ID:    id,
	})
}

// handleGetDocument returns a stored document with its feature fields
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	doc, err := s.engine.GetDocument(r.Context(), vars["index"], vars["type"], vars["id"])
	if err != nil {
		s.respondWithEngineError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument removes a document
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.engine.DeleteDocument(r.Context(), vars["index"], vars["type"], vars["id"]); err != nil {
		s.respondWithEngineError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{"acknowledged": "true"})
}

// Search request/response types
type SearchRequest struct {
	Size  int             `json:"size"`
	Query json.RawMessage `json:"query"`
}

type SearchResponse struct {
	TookMillis int64               `json:"took"`
	Total      int                 `json:"total"`
	Hits       []core.SearchResult `json:"hits"`
}

// handleSearch runs an image query against an index
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	indexName := mux.Vars(r)["index"]

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	searchReq, err := parseImageQuery(req.Query)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	searchReq.Size = req.Size

	start := time.Now()
	hits, err := s.engine.Search(r.Context(), indexName, searchReq)
	if err != nil {
		s.respondWithEngineError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, SearchResponse{
		TookMillis: time.Since(start).Milliseconds(),
		Total:      len(hits),
		Hits:       hits,
	})
}

// respondWithEngineError maps engine errors onto HTTP status codes
func (s *Server) respondWithEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrMalformedQuery),
		errors.Is(err, core.ErrNoFeature),
		errors.Is(err, core.ErrNoQueryFeature),
		errors.Is(err, core.ErrUnknownFeatureKind),
		errors.Is(err, core.ErrUnknownHashKind):
		s.respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrIndexNotFound),
		errors.Is(err, core.ErrDocumentNotFound),
		errors.Is(err, core.ErrFieldNotFound):
		s.respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrIndexExists):
		s.respondWithError(w, http.StatusConflict, err.Error())
	default:
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
