package repository

import (
	"context"

	"cartease/internal/domain"
)

// CartItemRepository exposes persistence operations for cart items.
// The ForUser variants scope the query to the owning user so a miss and
// a foreign item are indistinguishable to the caller.
type CartItemRepository interface {
	Repository[domain.CartItem]
	Init(ctx context.Context) error
	ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error)
	GetForUser(ctx context.Context, id, userID int64) (*domain.CartItem, error)
}

// ItemImageRepository manages the images attached to cart items. List
// and ListByItem return metadata only; GetForItem loads the stored bytes.
type ItemImageRepository interface {
	Repository[domain.ItemImage]
	Init(ctx context.Context) error
	ListByItem(ctx context.Context, cartItemID int64) ([]domain.ItemImage, error)
	GetForItem(ctx context.Context, id, cartItemID int64) (*domain.ItemImage, error)
}
