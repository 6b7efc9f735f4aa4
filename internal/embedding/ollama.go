package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// loadState tracks the one-time model warm-up.
type loadState int

const (
	loadUnstarted loadState = iota
	loadInProgress
	loadReady
	loadFailed
)

// OllamaProvider generates embeddings via the Ollama REST API. The model is
// warmed up lazily on first use: Ollama loads model weights on the first
// request, which can take tens of seconds, so concurrent callers wait for a
// single warm-up instead of each triggering their own.
type OllamaProvider struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client

	mu      sync.Mutex
	state   loadState
	loaded  chan struct{} // closed when warm-up finishes, either way
	loadErr error
}

// requestTimeout bounds every Ollama call, warm-up included. Model loads
// can take tens of seconds; a hung server must not stall callers forever.
const requestTimeout = 120 * time.Second

// NewOllamaProvider creates an Ollama embedding provider. token is the
// Bearer token for Ollama Cloud; leave it empty for a local instance.
func NewOllamaProvider(baseURL, model, token string) *OllamaProvider {
	return &OllamaProvider{
		baseURL:    baseURL,
		model:      model,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (o *OllamaProvider) Name() string {
	return fmt.Sprintf("ollama/%s", o.model)
}

// ensureLoaded performs the warm-up embed once. A failed warm-up is
// terminal: subsequent calls return the recorded error so the chain falls
// through to the next provider without re-paying the load timeout.
func (o *OllamaProvider) ensureLoaded(ctx context.Context) error {
	o.mu.Lock()
	switch o.state {
	case loadReady:
		o.mu.Unlock()
		return nil
	case loadFailed:
		err := o.loadErr
		o.mu.Unlock()
		return err
	case loadInProgress:
		done := o.loaded
		o.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		o.mu.Lock()
		err := o.loadErr
		o.mu.Unlock()
		return err
	}

	o.state = loadInProgress
	o.loaded = make(chan struct{})
	o.mu.Unlock()

	_, err := o.embed(ctx, "warmup")

	o.mu.Lock()
	if err != nil {
		o.state = loadFailed
		o.loadErr = fmt.Errorf("ollama model load failed: %w", err)
	} else {
		o.state = loadReady
	}
	close(o.loaded)
	err = o.loadErr
	o.mu.Unlock()
	return err
}

func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := o.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	vectors, err := o.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response")
	}
	return vectors[0], nil
}

func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := o.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	vectors, err := o.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed batch: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama embed batch: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

// embed posts to /api/embed. input may be a string or a []string; Ollama
// returns a list of embeddings either way.
func (o *OllamaProvider) embed(ctx context.Context, input any) ([][]float32, error) {
	payload := map[string]any{
		"model": o.model,
		"input": input,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Embeddings, nil
}
