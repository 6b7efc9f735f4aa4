package service

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

// SearchService answers semantic queries over a user's indexed documents.
type SearchService struct {
	store    VectorStore
	embedder Embedder

	scoreFloor float32
	overfetch  int
}

// SearchConfig carries search tunables.
type SearchConfig struct {
	ScoreFloor float32
	Overfetch  int
}

// NewSearchService creates a SearchService.
func NewSearchService(store VectorStore, embedder Embedder, cfg SearchConfig) *SearchService {
	overfetch := cfg.Overfetch
	if overfetch <= 0 {
		overfetch = 2
	}
	return &SearchService{
		store:      store,
		embedder:   embedder,
		scoreFloor: cfg.ScoreFloor,
		overfetch:  overfetch,
	}
}

// Search embeds the query and returns at most limit documents owned by
// userID, best match first. Points below the score floor are dropped and
// multiple hits on the same document collapse to the best one, which is why
// the raw query overfetches. scoreFloor overrides the configured floor for
// this call; pass nil to use the default. Search degrades to empty results
// when no embedding provider is reachable; the documents still exist and
// list endpoints keep working.
func (s *SearchService) Search(ctx context.Context, userID int64, query string, limit int, scoreFloor *float32) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []domain.SearchResult{}, nil
	}

	floor := s.scoreFloor
	if scoreFloor != nil {
		floor = *scoreFloor
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("search: embedding unavailable, returning no results: %v", err)
		return []domain.SearchResult{}, nil
	}

	hits, err := s.store.Search(ctx, vector, limit*s.overfetch, domain.PointFilter{
		domain.PayloadUserID: userID,
	})
	if err != nil {
		return nil, err
	}

	best := make(map[int64]domain.SearchResult)
	for _, hit := range hits {
		if hit.Score < floor {
			continue
		}
		result, ok := parseHit(hit)
		if !ok {
			continue
		}
		if prev, seen := best[result.DocumentID]; !seen || result.Score > prev.Score {
			best[result.DocumentID] = result
		}
	}

	// Distinguishes "nothing relevant" from "floor set too high" in the
	// logs; the store returns hits best first.
	if len(best) == 0 && len(hits) > 0 {
		log.Printf("search: score floor %.2f filtered all %d hits, top raw score %.4f", floor, len(hits), hits[0].Score)
	}

	results := make([]domain.SearchResult, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// parseHit maps a raw point payload onto a SearchResult. Points with a
// missing or malformed document ID are skipped rather than failing the
// whole query.
func parseHit(hit domain.ScoredPoint) (domain.SearchResult, bool) {
	docID, ok := payloadInt64(hit.Payload[domain.PayloadDocumentID])
	if !ok || docID <= 0 {
		return domain.SearchResult{}, false
	}

	result := domain.SearchResult{
		DocumentID: docID,
		Score:      hit.Score,
		Type:       domain.PointTypeContent,
	}
	if v, ok := hit.Payload[domain.PayloadType].(string); ok {
		result.Type = domain.PointType(v)
	}
	if v, ok := hit.Payload[domain.PayloadText].(string); ok {
		result.Text = v
	}
	if v, ok := hit.Payload[domain.PayloadFilename].(string); ok {
		result.Filename = v
	}
	if idx, ok := payloadInt64(hit.Payload[domain.PayloadChunkIndex]); ok {
		i := int(idx)
		result.ChunkIndex = &i
	}
	return result, true
}

// payloadInt64 handles the numeric types JSON decoding produces.
func payloadInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
