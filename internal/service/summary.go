package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

const (
	// summaryPromptMaxChars bounds how much document text goes into a single
	// prompt. Longer documents are summarized section by section and the
	// partial summaries merged in a final pass.
	summaryPromptMaxChars = 12000

	// summaryMaxSections caps the map phase; text beyond the cap is dropped
	// rather than turning one request into dozens of completions.
	summaryMaxSections = 8

	summarySystemPrompt = "You are a document analyst. Summarize the document the user provides in a few short paragraphs. Cover the document's purpose, its key points, and any conclusions. Answer in the document's language."

	summaryMergePrompt = "You are a document analyst. The user provides summaries of consecutive sections of one document. Merge them into a single coherent summary of the whole document, a few short paragraphs long. Answer in the sections' language."
)

// ChatClient is the slice of the OpenAI-compatible client the summarizer
// uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SummaryRepositoryInterface persists generated summaries.
type SummaryRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Summary) error
	GetByDocumentID(ctx context.Context, documentID int64) (*domain.Summary, error)
}

// SummaryDocumentRepository is the document access the summarizer needs.
type SummaryDocumentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
}

// SummaryService generates and caches one LLM summary per document.
type SummaryService struct {
	chat        ChatClient
	summaryRepo SummaryRepositoryInterface
	docRepo     SummaryDocumentRepository
	model       string
}

// NewSummaryService creates a SummaryService. model is the chat model name
// passed through to the OpenAI-compatible API.
func NewSummaryService(chat ChatClient, summaryRepo SummaryRepositoryInterface, docRepo SummaryDocumentRepository, model string) *SummaryService {
	return &SummaryService{
		chat:        chat,
		summaryRepo: summaryRepo,
		docRepo:     docRepo,
		model:       model,
	}
}

// Summarize returns the document's summary, generating it on first call.
// Regenerating an existing summary requires deleting it first; the cached
// one is authoritative otherwise.
func (s *SummaryService) Summarize(ctx context.Context, userID, documentID int64) (*domain.Summary, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, domain.ErrDocumentNotFound
	}
	if !doc.HasText() {
		return nil, domain.ErrNoTextContent
	}

	existing, err := s.summaryRepo.GetByDocumentID(ctx, documentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrSummaryNotFound) {
		return nil, err
	}

	content, tokens, err := s.generate(ctx, doc.TextContent)
	if err != nil {
		return nil, err
	}

	summary := &domain.Summary{
		DocumentID: documentID,
		Content:    content,
		TokensUsed: tokens,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.summaryRepo.Create(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to store summary: %w", err)
	}
	return summary, nil
}

// generate summarizes text, map-reducing when it exceeds one prompt's worth.
func (s *SummaryService) generate(ctx context.Context, text string) (string, int, error) {
	sections := splitSections(text, summaryPromptMaxChars, summaryMaxSections)
	if len(sections) == 1 {
		return s.complete(ctx, summarySystemPrompt, sections[0])
	}

	totalTokens := 0
	partials := make([]string, 0, len(sections))
	for i, section := range sections {
		partial, tokens, err := s.complete(ctx, summarySystemPrompt, section)
		if err != nil {
			return "", 0, fmt.Errorf("section %d/%d: %w", i+1, len(sections), err)
		}
		totalTokens += tokens
		partials = append(partials, partial)
	}

	merged, tokens, err := s.complete(ctx, summaryMergePrompt, strings.Join(partials, "\n\n"))
	if err != nil {
		return "", 0, err
	}
	return merged, totalTokens + tokens, nil
}

func (s *SummaryService) complete(ctx context.Context, systemPrompt, userContent string) (string, int, error) {
	resp, err := s.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrSummarizeFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", 0, fmt.Errorf("%w: empty completion", domain.ErrSummarizeFailed)
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

// splitSections cuts text into rune-bounded sections of at most maxChars,
// at most maxSections of them. Anything past the cap is dropped.
func splitSections(text string, maxChars, maxSections int) []string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return []string{text}
	}
	sections := make([]string, 0, maxSections)
	for start := 0; start < len(runes) && len(sections) < maxSections; start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		sections = append(sections, string(runes[start:end]))
	}
	return sections
}
