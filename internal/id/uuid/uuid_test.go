// Package uuid includes tests for the UUID generator wrapper.
package uuid

import (
	"errors"
	"testing"

	goUUID "github.com/google/uuid"

	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

// TestGeneratorNewID ensures generated IDs are unique, valid, version 7 UUIDs.
func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	id2, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	parsed, err := goUUID.Parse(id1)
	if err != nil {
		t.Fatalf("id1 not valid UUID: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"canonical", "0190b6c4-7c1e-7a3b-9f7a-2d1e5b6c7d8e", false},
		{"empty", "", true},
		{"object id", "64b7f0c2a1b2c3d4e5f60718", true},
		{"garbage", "invalid-id", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tc.id)
			if tc.wantErr {
				if !errors.Is(err, store.ErrInvalidID) {
					t.Fatalf("Validate(%q) = %v, want ErrInvalidID", tc.id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%q) unexpected error %v", tc.id, err)
			}
		})
	}
}
