package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

// Store is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection on demand.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// CollectionInfo describes the live collection.
type CollectionInfo struct {
	Dimension   int
	PointsCount int64
	Status      string
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Store) Collection() string {
	return s.collection
}

// EnsureCollection creates the collection with the given vector width if it
// does not exist yet. An existing collection is left untouched, whatever its
// width; Info is how callers detect a mismatch.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}

	status, _, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("qdrant GET collection: unexpected status %d", status)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, s.collectionURL(""), body)
}

// Info returns the collection's configured dimension and point count.
func (s *Store) Info(ctx context.Context) (*CollectionInfo, error) {
	var resp struct {
		Result struct {
			Status      string `json:"status"`
			PointsCount int64  `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, data, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("qdrant collection %s does not exist", s.collection)
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant GET collection failed: status %d", status)
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("qdrant decode collection info: %w", err)
	}
	return &CollectionInfo{
		Dimension:   resp.Result.Config.Params.Vectors.Size,
		PointsCount: resp.Result.PointsCount,
		Status:      resp.Result.Status,
	}, nil
}

// Upsert writes points in sub-batches of batchSize, waiting for each batch
// to be persisted before sending the next.
func (s *Store) Upsert(ctx context.Context, points []domain.VectorPoint, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 50
	}
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := make([]map[string]any, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, map[string]any{
				"id":      p.ID,
				"vector":  p.Vector,
				"payload": p.Payload,
			})
		}
		body := map[string]any{"points": batch}
		if err := s.putJSON(ctx, s.collectionURL("/points?wait=true"), body); err != nil {
			return err
		}
	}
	return nil
}

// Search runs a vector query filtered by payload match conditions. It applies
// no score threshold; score filtering belongs to the caller.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, filter domain.PointFilter) ([]domain.ScoredPoint, error) {
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		req["filter"] = buildFilter(filter)
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	points := make([]domain.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		points = append(points, domain.ScoredPoint{
			ID:      fmt.Sprintf("%v", r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return points, nil
}

// Scroll pages through point IDs matching the filter, 1000 at a time.
func (s *Store) Scroll(ctx context.Context, filter domain.PointFilter) ([]string, error) {
	var ids []string
	var offset any

	for {
		req := map[string]any{
			"limit":        1000,
			"with_payload": false,
			"with_vector":  false,
		}
		if len(filter) > 0 {
			req["filter"] = buildFilter(filter)
		}
		if offset != nil {
			req["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					ID any `json:"id"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.postJSON(ctx, s.collectionURL("/points/scroll"), req, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp.Result.Points {
			ids = append(ids, fmt.Sprintf("%v", p.ID))
		}
		if resp.Result.NextPageOffset == nil {
			return ids, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// DeleteByIDs removes the given points and waits for the deletion.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	return s.postJSON(ctx, s.collectionURL("/points/delete?wait=true"), body, nil)
}

// DeleteByFilter removes every point whose payload matches the filter. It
// scrolls for IDs first so the deletion count is known to the caller.
func (s *Store) DeleteByFilter(ctx context.Context, filter domain.PointFilter) (int, error) {
	ids, err := s.Scroll(ctx, filter)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.DeleteByIDs(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// DropCollection removes the whole collection. Missing collections are fine.
func (s *Store) DropCollection(ctx context.Context) error {
	status, _, err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("qdrant DELETE collection failed: status %d", status)
	}
	return nil
}

// buildFilter translates key/value pairs into Qdrant's match syntax.
func buildFilter(filter domain.PointFilter) map[string]any {
	must := make([]map[string]any, 0, len(filter))
	for key, value := range filter {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}
	return map[string]any{"must": must}
}

func (s *Store) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	data, _ := json.Marshal(body)
	status, respBody, err := s.do(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	if status >= 300 {
		return fmt.Errorf("qdrant PUT %s failed (%d): %s", url, status, string(respBody))
	}
	return nil
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	status, respBody, err := s.do(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	if status >= 300 {
		return fmt.Errorf("qdrant POST %s failed (%d): %s", url, status, string(respBody))
	}
	if out != nil {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

func (s *Store) do(ctx context.Context, method, url string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}
