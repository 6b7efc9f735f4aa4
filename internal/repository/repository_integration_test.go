//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/pagination"
	"github.com/paperbase-ai/paperbase/internal/testutil"
)

func setupUser(ctx context.Context, t *testing.T, userRepo *UserRepository) *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &domain.User{
		Username:     "alice-" + uuid.NewString()[:8],
		PasswordHash: "$2a$10$hash",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, userRepo.Create(ctx, user))
	return user
}

func setupDocument(ctx context.Context, t *testing.T, docRepo *DocumentRepository, userID int64, text string) *domain.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &domain.Document{
		UserID:           userID,
		Filename:         uuid.NewString() + ".pdf",
		OriginalFilename: "report.pdf",
		ObjectKey:        "key",
		FileSize:         1024,
		TextContent:      text,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, docRepo.Create(ctx, doc))
	return doc
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	user := setupUser(ctx, t, userRepo)
	assert.Positive(t, user.ID)

	retrieved, err := userRepo.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
	assert.True(t, retrieved.IsActive)

	dup := &domain.User{
		Username:     user.Username,
		PasswordHash: "$2a$10$other",
		IsActive:     true,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	err = userRepo.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	count, err := userRepo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	sessionRepo := NewSessionRepository(pool)
	user := setupUser(ctx, t, userRepo)

	now := time.Now().UTC().Truncate(time.Microsecond)
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: "hash-abc",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, sessionRepo.Create(ctx, session))

	retrieved, err := sessionRepo.GetByHash(ctx, "hash-abc")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.UserID)

	expired := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: "hash-old",
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now.Add(-25 * time.Hour),
	}
	require.NoError(t, sessionRepo.Create(ctx, expired))

	purged, err := sessionRepo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, sessionRepo.Delete(ctx, session.ID))
	_, err = sessionRepo.GetByHash(ctx, "hash-abc")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDocumentRepository_ListByUser_Pagination(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	user := setupUser(ctx, t, userRepo)

	for i := 0; i < 5; i++ {
		setupDocument(ctx, t, docRepo, user.ID, "text")
		time.Sleep(2 * time.Millisecond)
	}

	first, err := docRepo.ListByUser(ctx, user.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)
	// Newest first
	assert.Greater(t, first[0].ID, first[1].ID)

	cursor := &pagination.Cursor{LastID: first[1].ID, Timestamp: first[1].CreatedAt}
	second, err := docRepo.ListByUser(ctx, user.ID, 2, cursor)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Less(t, second[0].ID, first[1].ID)
}

func TestDocumentRepository_ListAllWithText(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	user := setupUser(ctx, t, userRepo)

	withText := setupDocument(ctx, t, docRepo, user.ID, "some text")
	setupDocument(ctx, t, docRepo, user.ID, "")

	docs, err := docRepo.ListAllWithText(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, withText.ID, docs[0].ID)
}

func TestSummaryRepository_ExistsForDocuments(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	summaryRepo := NewSummaryRepository(pool)
	user := setupUser(ctx, t, userRepo)

	summarized := setupDocument(ctx, t, docRepo, user.ID, "text")
	plain := setupDocument(ctx, t, docRepo, user.ID, "text")

	summary := &domain.Summary{
		DocumentID: summarized.ID,
		Content:    "short summary",
		TokensUsed: 100,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, summaryRepo.Create(ctx, summary))
	assert.Positive(t, summary.ID)

	exists, err := summaryRepo.ExistsForDocuments(ctx, []int64{summarized.ID, plain.ID})
	require.NoError(t, err)
	assert.True(t, exists[summarized.ID])
	assert.False(t, exists[plain.ID])

	// Summary cascades away with the document.
	require.NoError(t, docRepo.Delete(ctx, summarized.ID))
	_, err = summaryRepo.GetByDocumentID(ctx, summarized.ID)
	assert.ErrorIs(t, err, domain.ErrSummaryNotFound)
}

func TestIndexJobRepository_ClaimAndComplete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIndexJobRepository(pool)
	user := setupUser(ctx, t, userRepo)
	doc := setupDocument(ctx, t, docRepo, user.ID, "text")

	job := &domain.IndexJob{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		UserID:     user.ID,
		Action:     domain.IndexJobActionIndex,
		Status:     domain.IndexJobStatusPending,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].ID)
	assert.Equal(t, domain.IndexJobStatusProcessing, claimed[0].Status)

	// Claimed jobs are not handed out twice.
	again, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusCompleted, ""))

	final, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexJobStatusCompleted, final.Status)
	assert.NotNil(t, final.ProcessedAt)
}
