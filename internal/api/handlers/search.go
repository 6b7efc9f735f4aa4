package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/paperbase-ai/paperbase/internal/api"
	"github.com/paperbase-ai/paperbase/internal/api/middleware"
	"github.com/paperbase-ai/paperbase/internal/domain"
)

type SearchService interface {
	Search(ctx context.Context, userID int64, query string, limit int, scoreFloor *float32) ([]domain.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query      string   `json:"query"`
	Limit      int      `json:"limit"`
	ScoreFloor *float32 `json:"score_floor,omitempty"`
}

type SearchHitResponse struct {
	DocumentID int64   `json:"document_id"`
	Filename   string  `json:"filename"`
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Score      float32 `json:"score"`
	ChunkIndex *int    `json:"chunk_index,omitempty"`
}

type SearchResponse struct {
	Results []SearchHitResponse `json:"results"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.ScoreFloor != nil && (*req.ScoreFloor < 0 || *req.ScoreFloor > 1) {
		api.Error(w, http.StatusBadRequest, "score_floor must be between 0 and 1")
		return
	}

	results, err := h.svc.Search(r.Context(), middleware.GetUserID(r.Context()), req.Query, req.Limit, req.ScoreFloor)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	hits := make([]SearchHitResponse, 0, len(results))
	for _, res := range results {
		hits = append(hits, SearchHitResponse{
			DocumentID: res.DocumentID,
			Filename:   res.Filename,
			Text:       res.Text,
			Type:       string(res.Type),
			Score:      res.Score,
			ChunkIndex: res.ChunkIndex,
		})
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: hits})
}
