package service

import (
	"context"
	"fmt"
	"log"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/vectorstore/qdrant"
)

// VectorStore is the slice of the Qdrant client the indexer and search
// services need.
type VectorStore interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Info(ctx context.Context) (*qdrant.CollectionInfo, error)
	Upsert(ctx context.Context, points []domain.VectorPoint, batchSize int) error
	Search(ctx context.Context, vector []float32, limit int, filter domain.PointFilter) ([]domain.ScoredPoint, error)
	DeleteByFilter(ctx context.Context, filter domain.PointFilter) (int, error)
	DropCollection(ctx context.Context) error
	Collection() string
}

// Embedder generates embeddings for indexing and search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexerDocumentRepository is the document access the indexer needs.
type IndexerDocumentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	ListAllWithText(ctx context.Context) ([]*domain.Document, error)
}

// IndexerService maintains the vector index: one filename point plus one
// point per content chunk for every document.
type IndexerService struct {
	docRepo  IndexerDocumentRepository
	store    VectorStore
	embedder Embedder
	uuidGen  UUIDGenerator

	chunkCfg  ChunkConfig
	batchSize int
	dimension int
}

// IndexerConfig carries the indexer's tunables.
type IndexerConfig struct {
	ChunkConfig ChunkConfig
	BatchSize   int
	Dimension   int
}

// NewIndexerService creates an IndexerService.
func NewIndexerService(docRepo IndexerDocumentRepository, store VectorStore, embedder Embedder, cfg IndexerConfig) *IndexerService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	chunkCfg := cfg.ChunkConfig
	if chunkCfg.MaxChars <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IndexerService{
		docRepo:   docRepo,
		store:     store,
		embedder:  embedder,
		uuidGen:   &DefaultUUIDGenerator{},
		chunkCfg:  chunkCfg,
		batchSize: batchSize,
		dimension: cfg.Dimension,
	}
}

// NewIndexerServiceWithUUIDGen creates an IndexerService with a custom UUID
// generator (used in tests).
func NewIndexerServiceWithUUIDGen(docRepo IndexerDocumentRepository, store VectorStore, embedder Embedder, cfg IndexerConfig, uuidGen UUIDGenerator) *IndexerService {
	s := NewIndexerService(docRepo, store, embedder, cfg)
	s.uuidGen = uuidGen
	return s
}

// IndexDocument replaces the document's points with freshly embedded ones.
// Existing points are removed first so re-indexing never leaves stale chunks
// behind; a failed removal is logged and indexing proceeds, since the upsert
// overwrites nothing that matters and the next delete pass will catch strays.
func (s *IndexerService) IndexDocument(ctx context.Context, documentID int64) error {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	filter := domain.PointFilter{
		domain.PayloadDocumentID: doc.ID,
		domain.PayloadUserID:     doc.UserID,
	}
	if _, err := s.store.DeleteByFilter(ctx, filter); err != nil {
		log.Printf("failed to remove old points for document %d (continuing): %v", doc.ID, err)
	}

	points, contentCount, err := s.buildPoints(ctx, doc)
	if err != nil {
		return err
	}
	// A filename point alone is not an indexed document: success requires at
	// least one content point.
	if contentCount == 0 {
		return fmt.Errorf("%w: document %d has no content points", domain.ErrNoPointsIndexed, doc.ID)
	}

	if err := s.store.Upsert(ctx, points, s.batchSize); err != nil {
		return fmt.Errorf("failed to upsert points for document %d: %w", doc.ID, err)
	}

	log.Printf("indexed document %d: %d points", doc.ID, len(points))
	return nil
}

func (s *IndexerService) buildPoints(ctx context.Context, doc *domain.Document) ([]domain.VectorPoint, int, error) {
	var points []domain.VectorPoint

	// The filename point makes documents findable by name even when text
	// extraction produced nothing. Best-effort: content chunks still index
	// if the filename embed fails.
	filenameVec, err := s.embedder.Embed(ctx, doc.OriginalFilename)
	if err != nil {
		log.Printf("failed to embed filename for document %d (continuing): %v", doc.ID, err)
	} else {
		points = append(points, domain.VectorPoint{
			ID:     s.uuidGen.NewString(),
			Vector: filenameVec,
			Payload: map[string]any{
				domain.PayloadDocumentID: doc.ID,
				domain.PayloadUserID:     doc.UserID,
				domain.PayloadType:       string(domain.PointTypeFilename),
				domain.PayloadText:       doc.OriginalFilename,
				domain.PayloadFilename:   doc.OriginalFilename,
			},
		})
	}

	chunks := SplitText(doc.TextContent, s.chunkCfg)
	if len(chunks) == 0 {
		return points, 0, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		// The batch call is all-or-nothing; retry chunk by chunk so one bad
		// chunk (or a transient provider error) doesn't fail the document.
		log.Printf("batch embed failed for document %d, embedding chunks individually: %v", doc.ID, err)
		vectors = make([][]float32, len(chunks))
		for i, chunk := range chunks {
			vec, embErr := s.embedder.Embed(ctx, chunk)
			if embErr != nil {
				log.Printf("skipping chunk %d of document %d: %v", i, doc.ID, embErr)
				continue
			}
			vectors[i] = vec
		}
	}

	contentCount := 0
	for i, chunk := range chunks {
		if vectors[i] == nil {
			continue
		}
		points = append(points, domain.VectorPoint{
			ID:     s.uuidGen.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				domain.PayloadDocumentID: doc.ID,
				domain.PayloadUserID:     doc.UserID,
				domain.PayloadType:       string(domain.PointTypeContent),
				domain.PayloadText:       chunk,
				domain.PayloadFilename:   doc.OriginalFilename,
				domain.PayloadChunkIndex: i,
			},
		})
		contentCount++
	}
	return points, contentCount, nil
}

// DeleteDocument removes every point belonging to the document, scoped to
// its owner. A document with no points deletes cleanly.
func (s *IndexerService) DeleteDocument(ctx context.Context, documentID, userID int64) error {
	n, err := s.store.DeleteByFilter(ctx, domain.PointFilter{
		domain.PayloadDocumentID: documentID,
		domain.PayloadUserID:     userID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete points for document %d: %w", documentID, err)
	}
	log.Printf("deleted %d points for document %d", n, documentID)
	return nil
}

// EnsureReady creates the collection if missing and verifies its dimension
// matches the configured embedding width.
func (s *IndexerService) EnsureReady(ctx context.Context) error {
	if err := s.store.EnsureCollection(ctx, s.dimension); err != nil {
		return err
	}
	info, err := s.store.Info(ctx)
	if err != nil {
		return err
	}
	if s.dimension > 0 && info.Dimension != s.dimension {
		return fmt.Errorf("%w: collection %s has dimension %d, configured %d",
			domain.ErrDimensionMismatch, s.store.Collection(), info.Dimension, s.dimension)
	}
	return nil
}

// Rebuild drops the collection and re-indexes every document that has text.
// This is the recovery path for dimension changes and index corruption.
func (s *IndexerService) Rebuild(ctx context.Context) (int, error) {
	if err := s.store.DropCollection(ctx); err != nil {
		return 0, err
	}
	if err := s.store.EnsureCollection(ctx, s.dimension); err != nil {
		return 0, err
	}

	docs, err := s.docRepo.ListAllWithText(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}

	indexed := 0
	for _, doc := range docs {
		if err := s.IndexDocument(ctx, doc.ID); err != nil {
			log.Printf("rebuild: failed to index document %d: %v", doc.ID, err)
			continue
		}
		indexed++
	}
	return indexed, nil
}

// Diag reports the live collection state for the admin CLI.
func (s *IndexerService) Diag(ctx context.Context) (*qdrant.CollectionInfo, string, error) {
	info, err := s.store.Info(ctx)
	if err != nil {
		return nil, s.store.Collection(), err
	}
	return info, s.store.Collection(), nil
}
