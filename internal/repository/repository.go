package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("already exists")
)

// Repository is the generic persistence contract implemented once per
// entity kind. Each call is a single-statement commit: cancellation via
// the context leaves no partial write, and no transaction spans multiple
// calls. Add assigns the entity's identity in place.
type Repository[E any] interface {
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]E, error)
	GetByID(ctx context.Context, id int64) (*E, error)
	Add(ctx context.Context, entity *E) (int64, error)
	Update(ctx context.Context, entity *E) error
	Delete(ctx context.Context, entity *E) (bool, error)
}
