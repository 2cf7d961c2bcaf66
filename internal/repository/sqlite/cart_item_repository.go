package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cartease/internal/domain"
	"cartease/internal/repository"
)

const createCartItemsTable = `
CREATE TABLE IF NOT EXISTS cart_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_cart_items_user_id ON cart_items(user_id);
`

const cartItemColumns = `id, user_id, name, description, price, quantity, created_at, updated_at`

type CartItemRepository struct {
	db *sql.DB
}

func NewCartItemRepository(db *sql.DB) repository.CartItemRepository {
	return &CartItemRepository{db: db}
}

func (r *CartItemRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCartItemsTable); err != nil {
		return fmt.Errorf("create cart_items table: %w", err)
	}
	return nil
}

func (r *CartItemRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cart_items WHERE id=?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("count cart items: %w", err)
	}
	return n > 0, nil
}

func (r *CartItemRepository) List(ctx context.Context) ([]domain.CartItem, error) {
	return r.queryItems(ctx, `SELECT `+cartItemColumns+` FROM cart_items ORDER BY id ASC`)
}

func (r *CartItemRepository) ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	return r.queryItems(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE user_id=? ORDER BY id ASC`, userID)
}

func (r *CartItemRepository) GetByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE id=?`, id)
	return scanCartItem(row)
}

func (r *CartItemRepository) GetForUser(ctx context.Context, id, userID int64) (*domain.CartItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE id=? AND user_id=?`, id, userID)
	return scanCartItem(row)
}

func (r *CartItemRepository) Add(ctx context.Context, item *domain.CartItem) (int64, error) {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO cart_items (user_id, name, description, price, quantity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.UserID,
		item.Name,
		item.Description,
		item.Price.String(),
		item.Quantity,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert cart item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("cart item last insert id: %w", err)
	}
	item.ID = id
	return id, nil
}

func (r *CartItemRepository) Update(ctx context.Context, item *domain.CartItem) error {
	item.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
UPDATE cart_items
SET name=?, description=?, price=?, quantity=?, updated_at=?
WHERE id=? AND user_id=?`,
		item.Name,
		item.Description,
		item.Price.String(),
		item.Quantity,
		item.UpdatedAt,
		item.ID,
		item.UserID,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (r *CartItemRepository) Delete(ctx context.Context, item *domain.CartItem) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id=? AND user_id=?`, item.ID, item.UserID)
	if err != nil {
		return false, fmt.Errorf("delete cart item: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cart item delete rows affected: %w", err)
	}
	return aff > 0, nil
}

func (r *CartItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanCartItem(row interface {
	Scan(dest ...any) error
}) (*domain.CartItem, error) {
	var (
		item  domain.CartItem
		price string
	)
	if err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Name,
		&item.Description,
		&price,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cart item: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan cart item: %w", err)
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse cart item price %q: %w", price, err)
	}
	item.Price = parsed
	return &item, nil
}
