package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/hobbyvault/internal/client/credentials"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = credentials.ErrUnauthorized
	ErrConflict     = errors.New("email already registered")
	ErrInvalidInput = errors.New("invalid input")
)

// InputError lists the request fields the server rejected.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return ErrInvalidInput.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }
