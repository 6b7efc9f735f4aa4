package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paperbase-ai/paperbase/internal/api"
	"github.com/paperbase-ai/paperbase/internal/api/middleware"
	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/pagination"
	"github.com/paperbase-ai/paperbase/internal/service"
)

type DocumentService interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error)
	GetByID(ctx context.Context, userID, documentID int64) (*domain.Document, error)
	List(ctx context.Context, userID int64, limit int, cursor string) (*pagination.PageResult[*domain.Document], error)
	GetDownloadURL(ctx context.Context, userID, documentID int64) (string, error)
	Delete(ctx context.Context, userID, documentID int64) error
}

type SummaryService interface {
	Summarize(ctx context.Context, userID, documentID int64) (*domain.Summary, error)
}

// SummaryReader answers which documents already have summaries.
type SummaryReader interface {
	GetByDocumentID(ctx context.Context, documentID int64) (*domain.Summary, error)
	ExistsForDocuments(ctx context.Context, documentIDs []int64) (map[int64]bool, error)
}

type DocumentHandler struct {
	svc       DocumentService
	summaries SummaryService
	reader    SummaryReader
}

func NewDocumentHandler(svc DocumentService, summaries SummaryService, reader SummaryReader) *DocumentHandler {
	return &DocumentHandler{svc: svc, summaries: summaries, reader: reader}
}

type DocumentResponse struct {
	ID               int64  `json:"id"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
	HasText          bool   `json:"has_text"`
	UsedOCR          bool   `json:"used_ocr"`
	HasSummary       bool   `json:"has_summary"`
	CreatedAt        string `json:"created_at"`
}

type DocumentDetailResponse struct {
	DocumentResponse
	TextContent string           `json:"text_content,omitempty"`
	Summary     *SummaryResponse `json:"summary,omitempty"`
}

type SummaryResponse struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used"`
	CreatedAt  string `json:"created_at"`
}

type DocumentListResponse struct {
	Items   []DocumentResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func documentResponse(d *domain.Document, hasSummary bool) DocumentResponse {
	return DocumentResponse{
		ID:               d.ID,
		OriginalFilename: d.OriginalFilename,
		FileSize:         d.FileSize,
		HasText:          d.HasText(),
		UsedOCR:          d.UsedOCR,
		HasSummary:       hasSummary,
		CreatedAt:        d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func summaryResponse(s *domain.Summary) *SummaryResponse {
	return &SummaryResponse{
		ID:         s.ID,
		DocumentID: s.DocumentID,
		Content:    s.Content,
		TokensUsed: s.TokensUsed,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func documentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := h.svc.Upload(r.Context(), service.UploadInput{
		UserID:   middleware.GetUserID(r.Context()),
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentResponse(doc, false))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	page, err := h.svc.List(r.Context(), middleware.GetUserID(r.Context()), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	ids := make([]int64, 0, len(page.Items))
	for _, d := range page.Items {
		ids = append(ids, d.ID)
	}
	summarized, err := h.reader.ExistsForDocuments(r.Context(), ids)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]DocumentResponse, 0, len(page.Items))
	for _, d := range page.Items {
		items = append(items, documentResponse(d, summarized[d.ID]))
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.svc.GetByID(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := DocumentDetailResponse{TextContent: doc.TextContent}
	summary, err := h.reader.GetByDocumentID(r.Context(), id)
	switch {
	case err == nil:
		resp.Summary = summaryResponse(summary)
	case !errors.Is(err, domain.ErrSummaryNotFound):
		api.HandleError(w, err)
		return
	}
	resp.DocumentResponse = documentResponse(doc, resp.Summary != nil)

	api.Success(w, http.StatusOK, resp)
}

// View returns a presigned URL for the original PDF.
func (h *DocumentHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	url, err := h.svc.GetDownloadURL(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"url": url})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.svc.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *DocumentHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	summary, err := h.summaries.Summarize(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, summaryResponse(summary))
}
