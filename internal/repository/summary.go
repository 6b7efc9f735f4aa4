package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

type SummaryRepository struct {
	db dbtx
}

func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{db: pool}
}

func (r *SummaryRepository) Create(ctx context.Context, s *domain.Summary) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO summaries (document_id, content, tokens_used, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		s.DocumentID, s.Content, s.TokensUsed, s.CreatedAt,
	).Scan(&s.ID)
}

func (r *SummaryRepository) GetByDocumentID(ctx context.Context, documentID int64) (*domain.Summary, error) {
	var s domain.Summary
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, content, tokens_used, created_at
		 FROM summaries WHERE document_id = $1`,
		documentID,
	).Scan(&s.ID, &s.DocumentID, &s.Content, &s.TokensUsed, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSummaryNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ExistsForDocuments returns which of the given documents have a stored summary.
func (r *SummaryRepository) ExistsForDocuments(ctx context.Context, documentIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(documentIDs))
	if len(documentIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT document_id FROM summaries WHERE document_id = ANY($1)`,
		documentIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (r *SummaryRepository) DeleteByDocumentID(ctx context.Context, documentID int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM summaries WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSummaryNotFound
	}
	return nil
}
