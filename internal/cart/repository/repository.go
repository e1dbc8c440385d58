package repository

import (
	"context"
	"errors"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository is the remote persisted copy of a session's cart. It is a
// best-effort collaborator: the in-memory store stays authoritative for the
// UI whether or not these calls succeed.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	SaveCart(ctx context.Context, sessionID string, items []domain.LineItem) error
	LoadCart(ctx context.Context, sessionID string) ([]domain.LineItem, error)
	ClearCart(ctx context.Context, sessionID string) error
}
