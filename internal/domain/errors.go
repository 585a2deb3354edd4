package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrConflict        = errors.New("email already taken")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrDelivery        = errors.New("mail delivery failed")
	ErrStoreTimeout    = errors.New("store timeout")
)

// ValidationError 按字段归类的校验错误（422）
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
