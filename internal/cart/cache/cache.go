package cache

import (
	"context"
	"errors"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, sessionID string) ([]domain.LineItem, error)
	Set(ctx context.Context, sessionID string, items []domain.LineItem) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
