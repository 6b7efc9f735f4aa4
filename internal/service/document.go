package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/pagination"
)

var pdfMagic = []byte("%PDF-")

// StorageClientInterface is the object-storage access documents need.
type StorageClientInterface interface {
	PutObject(ctx context.Context, key string, contentType string, data []byte) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// TextExtractor pulls text out of a PDF, falling back to OCR when the file
// has no text layer.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (*ExtractResult, error)
}

// ExtractResult is the outcome of text extraction.
type ExtractResult struct {
	Text    string
	UsedOCR bool
}

// DocumentRepositoryInterface persists document records.
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	ListByUser(ctx context.Context, userID int64, limit int, cursor *pagination.Cursor) ([]*domain.Document, error)
	Delete(ctx context.Context, id int64) error
}

// DocumentIndexJobRepository enqueues vector-index work.
type DocumentIndexJobRepository interface {
	Create(ctx context.Context, job *domain.IndexJob) error
}

// DocumentService handles upload, listing, and deletion of PDFs.
type DocumentService struct {
	docRepo       DocumentRepositoryInterface
	indexJobRepo  DocumentIndexJobRepository
	storageClient StorageClientInterface
	extractor     TextExtractor
	uuidGen       UUIDGenerator

	maxUploadBytes int64
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(
	docRepo DocumentRepositoryInterface,
	indexJobRepo DocumentIndexJobRepository,
	storageClient StorageClientInterface,
	extractor TextExtractor,
	maxUploadBytes int64,
) *DocumentService {
	return &DocumentService{
		docRepo:        docRepo,
		indexJobRepo:   indexJobRepo,
		storageClient:  storageClient,
		extractor:      extractor,
		uuidGen:        &DefaultUUIDGenerator{},
		maxUploadBytes: maxUploadBytes,
	}
}

// NewDocumentServiceWithUUIDGen creates a DocumentService with a custom UUID
// generator (used in tests).
func NewDocumentServiceWithUUIDGen(
	docRepo DocumentRepositoryInterface,
	indexJobRepo DocumentIndexJobRepository,
	storageClient StorageClientInterface,
	extractor TextExtractor,
	maxUploadBytes int64,
	uuidGen UUIDGenerator,
) *DocumentService {
	s := NewDocumentService(docRepo, indexJobRepo, storageClient, extractor, maxUploadBytes)
	s.uuidGen = uuidGen
	return s
}

// UploadInput carries one uploaded file.
type UploadInput struct {
	UserID   int64
	Filename string
	Data     []byte
}

// Upload validates the PDF, stores the original, extracts its text, creates
// the document record, and enqueues indexing. Extraction failure is not an
// upload failure: the document is kept with empty text and stays findable by
// filename.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	if s.maxUploadBytes > 0 && int64(len(input.Data)) > s.maxUploadBytes {
		return nil, domain.ErrFileTooLarge
	}
	if !bytes.HasPrefix(input.Data, pdfMagic) {
		return nil, domain.ErrNotPDF
	}

	storedName := s.uuidGen.NewString() + filepath.Ext(input.Filename)
	objectKey := fmt.Sprintf("%d/%s", input.UserID, storedName)

	if err := s.storageClient.PutObject(ctx, objectKey, "application/pdf", input.Data); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	var text string
	var usedOCR bool
	if s.extractor != nil {
		extracted, err := s.extractor.Extract(ctx, input.Filename, input.Data)
		if err != nil {
			log.Printf("text extraction failed for %s (keeping document without text): %v", input.Filename, err)
		} else {
			text = extracted.Text
			usedOCR = extracted.UsedOCR
		}
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		UserID:           input.UserID,
		Filename:         storedName,
		OriginalFilename: input.Filename,
		ObjectKey:        objectKey,
		FileSize:         int64(len(input.Data)),
		TextContent:      text,
		UsedOCR:          usedOCR,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	s.enqueue(ctx, doc.ID, doc.UserID, domain.IndexJobActionIndex)
	return doc, nil
}

// enqueue creates an index job. A failed enqueue is logged, not returned:
// the admin CLI's rebuild covers any document the worker never saw.
func (s *DocumentService) enqueue(ctx context.Context, documentID, userID int64, action domain.IndexJobAction) {
	if s.indexJobRepo == nil {
		return
	}
	job := &domain.IndexJob{
		ID:         s.uuidGen.NewString(),
		DocumentID: documentID,
		UserID:     userID,
		Action:     action,
		Status:     domain.IndexJobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.indexJobRepo.Create(ctx, job); err != nil {
		log.Printf("failed to enqueue %s job for document %d: %v", action, documentID, err)
	}
}

// GetByID returns the document if it belongs to userID.
func (s *DocumentService) GetByID(ctx context.Context, userID, documentID int64) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		// Other users' documents look like they don't exist.
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// List returns one page of the user's documents, newest first.
func (s *DocumentService) List(ctx context.Context, userID int64, limit int, cursorStr string) (*pagination.PageResult[*domain.Document], error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	docs, err := s.docRepo.ListByUser(ctx, userID, limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	next := pagination.CreateNextCursor(docs, limit,
		func(d *domain.Document) int64 { return d.ID },
		func(d *domain.Document) time.Time { return d.CreatedAt })

	return &pagination.PageResult[*domain.Document]{
		Items:   docs,
		Cursor:  next,
		HasMore: next != "",
	}, nil
}

// GetDownloadURL returns a presigned URL for the original PDF.
func (s *DocumentService) GetDownloadURL(ctx context.Context, userID, documentID int64) (string, error) {
	doc, err := s.GetByID(ctx, userID, documentID)
	if err != nil {
		return "", err
	}
	url, err := s.storageClient.GenerateDownloadURL(ctx, doc.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return url, nil
}

// Delete removes the document record, its stored file, and enqueues vector
// cleanup. The record goes first so a storage hiccup never leaves a
// half-deleted document visible in listings.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID int64) error {
	doc, err := s.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	if err := s.storageClient.DeleteObject(ctx, doc.ObjectKey); err != nil {
		log.Printf("failed to delete object %s (continuing): %v", doc.ObjectKey, err)
	}

	s.enqueue(ctx, documentID, userID, domain.IndexJobActionDelete)
	return nil
}
