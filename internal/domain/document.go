package domain

import (
	"fmt"
	"time"
)

// Document represents an uploaded PDF and its extracted text.
type Document struct {
	ID               int64
	UserID           int64
	Filename         string // stored object name (uuid + extension)
	OriginalFilename string
	ObjectKey        string
	FileSize         int64
	TextContent      string // empty when extraction produced nothing
	UsedOCR          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasText reports whether extraction produced any searchable text.
func (d *Document) HasText() bool {
	return d != nil && d.TextContent != ""
}

// Summary represents a stored LLM summary of a document.
type Summary struct {
	ID         int64
	DocumentID int64
	Content    string
	TokensUsed int
	CreatedAt  time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.UserID <= 0 {
		return fmt.Errorf("document user ID is required")
	}
	if d.OriginalFilename == "" {
		return fmt.Errorf("document filename is required")
	}
	if d.FileSize < 0 {
		return fmt.Errorf("document file size cannot be negative")
	}
	return nil
}
