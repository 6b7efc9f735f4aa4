package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/vectorstore/qdrant"
)

// MockVectorStore is a mock implementation of VectorStore
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) EnsureCollection(ctx context.Context, dimension int) error {
	args := m.Called(ctx, dimension)
	return args.Error(0)
}

func (m *MockVectorStore) Info(ctx context.Context) (*qdrant.CollectionInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*qdrant.CollectionInfo), args.Error(1)
}

func (m *MockVectorStore) Upsert(ctx context.Context, points []domain.VectorPoint, batchSize int) error {
	args := m.Called(ctx, points, batchSize)
	return args.Error(0)
}

func (m *MockVectorStore) Search(ctx context.Context, vector []float32, limit int, filter domain.PointFilter) ([]domain.ScoredPoint, error) {
	args := m.Called(ctx, vector, limit, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredPoint), args.Error(1)
}

func (m *MockVectorStore) DeleteByFilter(ctx context.Context, filter domain.PointFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockVectorStore) DropCollection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorStore) Collection() string {
	args := m.Called()
	return args.String(0)
}

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockIndexerDocRepo is a mock implementation of IndexerDocumentRepository
type MockIndexerDocRepo struct {
	mock.Mock
}

func (m *MockIndexerDocRepo) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockIndexerDocRepo) ListAllWithText(ctx context.Context) ([]*domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func testDoc() *domain.Document {
	return &domain.Document{
		ID:               5,
		UserID:           3,
		OriginalFilename: "report.pdf",
		TextContent:      "This document describes quarterly results in detail and at length.",
	}
}

func TestIndexerService_IndexDocument_Success(t *testing.T) {
	ctx := context.Background()
	docRepo := new(MockIndexerDocRepo)
	store := new(MockVectorStore)
	embedder := new(MockEmbedder)

	doc := testDoc()
	docRepo.On("GetByID", ctx, int64(5)).Return(doc, nil)
	store.On("DeleteByFilter", ctx, domain.PointFilter{
		domain.PayloadDocumentID: int64(5),
		domain.PayloadUserID:     int64(3),
	}).Return(0, nil)
	embedder.On("Embed", ctx, "report.pdf").Return([]float32{0.1, 0.2}, nil)
	embedder.On("EmbedBatch", ctx, mock.Anything).Return([][]float32{{0.3, 0.4}}, nil)

	var upserted []domain.VectorPoint
	store.On("Upsert", ctx, mock.Anything, 50).Run(func(args mock.Arguments) {
		upserted = args.Get(1).([]domain.VectorPoint)
	}).Return(nil)

	svc := NewIndexerService(docRepo, store, embedder, IndexerConfig{Dimension: 2})
	err := svc.IndexDocument(ctx, 5)

	require.NoError(t, err)
	require.Len(t, upserted, 2)

	// First point carries the filename, second the content chunk.
	assert.Equal(t, string(domain.PointTypeFilename), upserted[0].Payload[domain.PayloadType])
	assert.Equal(t, "report.pdf", upserted[0].Payload[domain.PayloadText])
	assert.Nil(t, upserted[0].Payload[domain.PayloadChunkIndex])

	assert.Equal(t, string(domain.PointTypeContent), upserted[1].Payload[domain.PayloadType])
	assert.Equal(t, int64(5), upserted[1].Payload[domain.PayloadDocumentID])
	assert.Equal(t, int64(3), upserted[1].Payload[domain.PayloadUserID])
	assert.Equal(t, 0, upserted[1].Payload[domain.PayloadChunkIndex])
	store.AssertExpectations(t)
}

func TestIndexerService_IndexDocument_FilenameEmbedFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	docRepo := new(MockIndexerDocRepo)
	store := new(MockVectorStore)
	embedder := new(MockEmbedder)

	docRepo.On("GetByID", ctx, int64(5)).Return(testDoc(), nil)
	store.On("DeleteByFilter", ctx, mock.Anything).Return(0, nil)
	embedder.On("Embed", ctx, "report.pdf").Return(nil, errors.New("provider down"))
	embedder.On("EmbedBatch", ctx, mock.Anything).Return([][]float32{{0.3, 0.4}}, nil)

	var upserted []domain.VectorPoint
	store.On("Upsert", ctx, mock.Anything, 50).Run(func(args mock.Arguments) {
		upserted = args.Get(1).([]domain.VectorPoint)
	}).Return(nil)

	svc := NewIndexerService(docRepo, store, embedder, IndexerConfig{})
	err := svc.IndexDocument(ctx, 5)

	require.NoError(t, err)
	require.Len(t, upserted, 1)
	assert.Equal(t, string(domain.PointTypeContent), upserted[0].Payload[domain.PayloadType])
}

func TestIndexerService_IndexDocument_NoPoints(t *testing.T) {
	ctx := context.Background()
	docRepo := new(MockIndexerDocRepo)
	store := new(MockVectorStore)
	embedder := new(MockEmbedder)

	doc := testDoc()
	doc.TextContent = ""
	docRepo.On("GetByID", ctx, int64(5)).Return(doc, nil)
	store.On("DeleteByFilter", ctx, mock.Anything).Return(0, nil)
	embedder.On("Embed", ctx, "report.pdf").Return(nil, errors.New("provider down"))

	svc := NewIndexerService(docRepo, store, embedder, IndexerConfig{})
	err := svc.IndexDocument(ctx, 5)

	assert.ErrorIs(t, err, domain.ErrNoPointsIndexed)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestIndexerService_IndexDocument_FilenamePointAloneIsFailure(t *testing.T) {
	ctx := context.Background()
	docRepo := new(MockIndexerDocRepo)
	store := new(MockVectorStore)
	embedder := new(MockEmbedder)

	doc := testDoc()
	doc.TextContent = ""
	docRepo.On("GetByID", ctx, int64(5)).Return(doc, nil)
	store.On("DeleteByFilter", ctx, mock.Anything).Return(0, nil)
	embedder.On("Embed", ctx, "report.pdf").Return([]float32{0.1, 0.2}, nil)

	svc := NewIndexerService(docRepo, store, embedder, IndexerConfig{})
	err := svc.IndexDocument(ctx, 5)

	// A successful filename embed does not rescue a document with no
	// content points.
	assert.ErrorIs(t, err, domain.ErrNoPointsIndexed)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	embedder.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
}

func TestIndexerService_IndexDocument_StaleDeleteFailureAbsorbed(t *testing.T) {
	ctx := context.Background()
	docRepo := new(MockIndexerDocRepo)
	store := new(MockVectorStore)
	embedder := new(MockEmbedder)

	docRepo.On("GetByID", ctx, int64(5)).Return(testDoc(), nil)
	store.On("DeleteByFilter", ctx, mock.Anything).Return(0, errors.New("timeout"))
	embedder.On("Embed", ctx, "report.pdf").Return([]float32{0.1}, nil)
	embedder.On("EmbedBatch", ctx, mock.Anything).Return([][]float32{{0.3}}, nil)
	store.On("Upsert", ctx, mock.Anything, 50).Return(nil)

	svc := NewIndexerService(docRepo, store, embedder, IndexerConfig{})
	assert.NoError(t, svc.IndexDocument(ctx, 5))
}

func TestIndexerService_IndexDocument_AllChunksFailingIsFailure(t *testing.T) {
	ctx := context.Background()
	docRepo := new(MockIndexerDocRepo)
	store := new(MockVectorStore)
	embedder := new(MockEmbedder)

	doc := testDoc()
	docRepo.On("GetByID", ctx, int64(5)).Return(doc, nil)
	store.On("DeleteByFilter", ctx, mock.Anything).Return(0, nil)
	embedder.On("Embed", ctx, "report.pdf").Return([]float32{0.1}, nil)
	embedder.On("EmbedBatch", ctx, mock.Anything).Return(nil, errors.New("all providers down"))
	// The per-chunk fallback fails too.
	embedder.On("Embed", ctx, doc.TextContent).Return(nil, errors.New("all providers down"))

	svc := NewIndexerService(docRepo, store, embedder, IndexerConfig{})
	err := svc.IndexDocument(ctx, 5)

	assert.ErrorIs(t, err, domain.ErrNoPointsIndexed)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestIndexerService_IndexDocument_FailedChunksAreSkipped(t *testing.T) {
	ctx := context.Background()
	docRepo := new(MockIndexerDocRepo)
	store := new(MockVectorStore)
	embedder := new(MockEmbedder)

	doc := testDoc()
	doc.TextContent = "alpha beta one\n\ngamma delta two"
	docRepo.On("GetByID", ctx, int64(5)).Return(doc, nil)
	store.On("DeleteByFilter", ctx, mock.Anything).Return(0, nil)
	embedder.On("Embed", ctx, "report.pdf").Return([]float32{0.1, 0.2}, nil)
	embedder.On("EmbedBatch", ctx, []string{"alpha beta one", "gamma delta two"}).
		Return(nil, errors.New("batch unavailable"))
	embedder.On("Embed", ctx, "alpha beta one").Return([]float32{0.3, 0.4}, nil)
	embedder.On("Embed", ctx, "gamma delta two").Return(nil, errors.New("provider hiccup"))

	var upserted []domain.VectorPoint
	store.On("Upsert", ctx, mock.Anything, 50).Run(func(args mock.Arguments) {
		upserted = args.Get(1).([]domain.VectorPoint)
	}).Return(nil)

	svc := NewIndexerService(docRepo, store, embedder, IndexerConfig{
		ChunkConfig: ChunkConfig{MaxChars: 20, Overlap: 0, MinChars: 1},
	})
	err := svc.IndexDocument(ctx, 5)

	// One chunk embedded, one skipped: the document still indexes.
	require.NoError(t, err)
	require.Len(t, upserted, 2)
	assert.Equal(t, string(domain.PointTypeFilename), upserted[0].Payload[domain.PayloadType])
	assert.Equal(t, "alpha beta one", upserted[1].Payload[domain.PayloadText])
	assert.Equal(t, 0, upserted[1].Payload[domain.PayloadChunkIndex])
}

func TestIndexerService_DeleteDocument_NothingToDeleteIsSuccess(t *testing.T) {
	ctx := context.Background()
	store := new(MockVectorStore)
	store.On("DeleteByFilter", ctx, domain.PointFilter{
		domain.PayloadDocumentID: int64(9),
		domain.PayloadUserID:     int64(3),
	}).Return(0, nil)

	svc := NewIndexerService(new(MockIndexerDocRepo), store, new(MockEmbedder), IndexerConfig{})
	assert.NoError(t, svc.DeleteDocument(ctx, 9, 3))
}

func TestIndexerService_EnsureReady_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := new(MockVectorStore)
	store.On("EnsureCollection", ctx, 768).Return(nil)
	store.On("Info", ctx).Return(&qdrant.CollectionInfo{Dimension: 1024}, nil)
	store.On("Collection").Return("paperbase_vectors")

	svc := NewIndexerService(new(MockIndexerDocRepo), store, new(MockEmbedder), IndexerConfig{Dimension: 768})
	err := svc.EnsureReady(ctx)

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndexerService_Rebuild(t *testing.T) {
	ctx := context.Background()
	docRepo := new(MockIndexerDocRepo)
	store := new(MockVectorStore)
	embedder := new(MockEmbedder)

	docA := testDoc()
	docB := testDoc()
	docB.ID = 6
	docB.OriginalFilename = "notes.pdf"

	store.On("DropCollection", ctx).Return(nil)
	store.On("EnsureCollection", ctx, 2).Return(nil)
	docRepo.On("ListAllWithText", ctx).Return([]*domain.Document{docA, docB}, nil)
	docRepo.On("GetByID", ctx, int64(5)).Return(docA, nil)
	docRepo.On("GetByID", ctx, int64(6)).Return(nil, errors.New("db error"))
	store.On("DeleteByFilter", ctx, mock.Anything).Return(0, nil)
	embedder.On("Embed", ctx, "report.pdf").Return([]float32{0.1, 0.2}, nil)
	embedder.On("EmbedBatch", ctx, mock.Anything).Return([][]float32{{0.3, 0.4}}, nil)
	store.On("Upsert", ctx, mock.Anything, 50).Return(nil)

	svc := NewIndexerService(docRepo, store, embedder, IndexerConfig{Dimension: 2})
	indexed, err := svc.Rebuild(ctx)

	// One document indexed, the failing one skipped.
	require.NoError(t, err)
	assert.Equal(t, 1, indexed)
}
