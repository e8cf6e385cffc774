// Package store is the persistence collaborator boundary: load and save
// entity snapshots by kind and id. The creation core never calls it
// directly; callers feed loaded snapshots into sessions and read
// generated entities back out.
package store

import (
	"context"
	"errors"

	"mythforge/internal/entity"
)

// ErrNotFound is returned when no entity exists for a kind and id.
var ErrNotFound = errors.New("store: entity not found")

// Store persists entity snapshots.
type Store interface {
	// Load returns the entity for a kind and id, or ErrNotFound.
	Load(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error)
	// Save upserts an entity and returns its id, generating one when the
	// entity carries none.
	Save(ctx context.Context, kind entity.Kind, e entity.Entity) (string, error)
	// Delete removes an entity. Deleting a missing entity is not an error.
	Delete(ctx context.Context, kind entity.Kind, id string) error
	// List returns the ids stored for a kind.
	List(ctx context.Context, kind entity.Kind) ([]string, error)
	// Close releases underlying resources.
	Close() error
}
