// Package uuid generates and validates the record identifiers used by the
// memory and Postgres backends.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

// Generator creates UUID v7 strings, which sort by creation time.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Validate returns store.ErrInvalidID unless id is a canonical UUID.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("empty id: %w", store.ErrInvalidID)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("parse %q: %w", id, store.ErrInvalidID)
	}
	return nil
}
