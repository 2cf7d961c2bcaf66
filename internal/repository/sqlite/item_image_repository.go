package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cartease/internal/domain"
	"cartease/internal/repository"
)

const createItemImagesTable = `
CREATE TABLE IF NOT EXISTS item_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cart_item_id INTEGER NOT NULL,
	file_name TEXT NOT NULL,
	file_bytes BLOB NOT NULL,
	content_type TEXT NOT NULL,
	content_disposition TEXT NOT NULL DEFAULT '',
	length INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	s3_location TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY(cart_item_id) REFERENCES cart_items(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_item_images_cart_item_id ON item_images(cart_item_id);
`

// metadata columns only; file_bytes is loaded by GetForItem
const itemImageColumns = `id, cart_item_id, file_name, content_type, content_disposition, length, name, s3_location, created_at`

type ItemImageRepository struct {
	db *sql.DB
}

func NewItemImageRepository(db *sql.DB) repository.ItemImageRepository {
	return &ItemImageRepository{db: db}
}

func (r *ItemImageRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createItemImagesTable); err != nil {
		return fmt.Errorf("create item_images table: %w", err)
	}
	return nil
}

func (r *ItemImageRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM item_images WHERE id=?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("count item images: %w", err)
	}
	return n > 0, nil
}

func (r *ItemImageRepository) List(ctx context.Context) ([]domain.ItemImage, error) {
	return r.queryImages(ctx, `SELECT `+itemImageColumns+` FROM item_images ORDER BY id ASC`)
}

func (r *ItemImageRepository) ListByItem(ctx context.Context, cartItemID int64) ([]domain.ItemImage, error) {
	return r.queryImages(ctx, `SELECT `+itemImageColumns+` FROM item_images WHERE cart_item_id=? ORDER BY id ASC`, cartItemID)
}

func (r *ItemImageRepository) GetByID(ctx context.Context, id int64) (*domain.ItemImage, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemImageColumns+` FROM item_images WHERE id=?`, id)
	return scanItemImage(row)
}

// GetForItem loads a single image including its stored bytes, scoped to the
// owning cart item.
func (r *ItemImageRepository) GetForItem(ctx context.Context, id, cartItemID int64) (*domain.ItemImage, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, cart_item_id, file_name, file_bytes, content_type, content_disposition, length, name, s3_location, created_at
FROM item_images
WHERE id=? AND cart_item_id=?`,
		id, cartItemID,
	)

	var img domain.ItemImage
	if err := row.Scan(
		&img.ID,
		&img.CartItemID,
		&img.FileName,
		&img.FileBytes,
		&img.ContentType,
		&img.ContentDisposition,
		&img.Length,
		&img.Name,
		&img.S3Location,
		&img.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item image: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan item image: %w", err)
	}
	return &img, nil
}

func (r *ItemImageRepository) Add(ctx context.Context, img *domain.ItemImage) (int64, error) {
	img.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO item_images (cart_item_id, file_name, file_bytes, content_type, content_disposition, length, name, s3_location, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.CartItemID,
		img.FileName,
		img.FileBytes,
		img.ContentType,
		img.ContentDisposition,
		img.Length,
		img.Name,
		img.S3Location,
		img.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert item image: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("item image last insert id: %w", err)
	}
	img.ID = id
	return id, nil
}

func (r *ItemImageRepository) Update(ctx context.Context, img *domain.ItemImage) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE item_images
SET file_name=?, content_type=?, content_disposition=?, length=?, name=?, s3_location=?
WHERE id=? AND cart_item_id=?`,
		img.FileName,
		img.ContentType,
		img.ContentDisposition,
		img.Length,
		img.Name,
		img.S3Location,
		img.ID,
		img.CartItemID,
	)
	if err != nil {
		return fmt.Errorf("update item image: %w", err)
	}
	return nil
}

func (r *ItemImageRepository) Delete(ctx context.Context, img *domain.ItemImage) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM item_images WHERE id=?`, img.ID)
	if err != nil {
		return false, fmt.Errorf("delete item image: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("item image delete rows affected: %w", err)
	}
	return aff > 0, nil
}

func (r *ItemImageRepository) queryImages(ctx context.Context, query string, args ...any) ([]domain.ItemImage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query item images: %w", err)
	}
	defer rows.Close()

	var images []domain.ItemImage
	for rows.Next() {
		img, err := scanItemImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

func scanItemImage(row interface {
	Scan(dest ...any) error
}) (*domain.ItemImage, error) {
	var img domain.ItemImage
	if err := row.Scan(
		&img.ID,
		&img.CartItemID,
		&img.FileName,
		&img.ContentType,
		&img.ContentDisposition,
		&img.Length,
		&img.Name,
		&img.S3Location,
		&img.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item image: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan item image: %w", err)
	}
	return &img, nil
}
