package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrFileTooLarge         = NewDomainError(ErrCodeValidation, "file exceeds maximum allowed size")
	ErrNotPDF               = NewDomainError(ErrCodeValidation, "only PDF files are supported")
	ErrNoTextContent        = NewDomainError(ErrCodeValidation, "document has no extractable text content")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrSummaryNotFound  = NewDomainError(ErrCodeNotFound, "summary not found")
	ErrUserNotFound     = NewDomainError(ErrCodeNotFound, "user not found")
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "session not found")
)

// Already exists errors
var (
	ErrUserAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "username already taken")
)

// Authorization errors
var (
	ErrInvalidCredentials = NewDomainError(ErrCodeUnauthorized, "invalid username or password")
	ErrInvalidToken       = NewDomainError(ErrCodeUnauthorized, "invalid or expired token")
	ErrUserInactive       = NewDomainError(ErrCodeUnauthorized, "account is deactivated")
)

// Indexing and vector store errors. Store-unavailable is distinguishable so
// callers can skip search/index instead of failing the whole request.
var (
	ErrVectorStoreUnavailable = NewDomainError(ErrCodeUnavailable, "vector store unavailable")
	ErrEmbeddingUnavailable   = NewDomainError(ErrCodeUnavailable, "no embedding provider available")
	ErrDimensionMismatch      = NewDomainError(ErrCodeInternalError, "embedding dimension does not match collection; rebuild the index")
	ErrNoPointsIndexed        = NewDomainError(ErrCodeInternalError, "no content vectors could be generated for document")
	ErrSummarizeFailed        = NewDomainError(ErrCodeInternalError, "summary generation failed")
)
