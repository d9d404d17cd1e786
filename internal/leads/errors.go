package leads

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPayloadTooLarge is returned when the request body exceeds the ceiling
	ErrPayloadTooLarge = errors.New("leads: payload too large")

	// ErrNilRepository is returned when a handler is built without a store
	ErrNilRepository = errors.New("leads: repository required")
)

// StorageError reports that the backing table was unreachable or rejected
// an operation. It is never retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("leads: %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Issue codes reported by Validate.
const (
	CodeRequired      = "required"
	CodeInvalidType   = "invalid_type"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeInvalidString = "invalid_string"
	CodeInvalidJSON   = "invalid_json"
)

// Issue is a single violated constraint.
type Issue struct {
	Code    string   `json:"code"`
	Field   string   `json:"field,omitempty"`
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// ValidationError lists every field constraint a submission violated.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Field == "" {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return "leads: invalid input: " + strings.Join(parts, "; ")
}

// Fields returns the distinct field names that failed, in report order.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]struct{}, len(e.Issues))
	var out []string
	for _, issue := range e.Issues {
		if issue.Field == "" {
			continue
		}
		if _, ok := seen[issue.Field]; ok {
			continue
		}
		seen[issue.Field] = struct{}{}
		out = append(out, issue.Field)
	}
	return out
}

// HasField reports whether field has at least one issue.
func (e *ValidationError) HasField(field string) bool {
	for _, issue := range e.Issues {
		if issue.Field == field {
			return true
		}
	}
	return false
}
