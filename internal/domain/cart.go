package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a single entry in a user's cart. Every item is owned by
// exactly one user; all reads and writes are scoped to that owner.
type CartItem struct {
	Entity
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	UserID      int64
	Images      []ItemImage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemImage is an uploaded image attached to a cart item. Images are
// appended, never replaced. S3Location is set when the bytes have been
// mirrored to object storage; the database copy stays authoritative.
type ItemImage struct {
	Entity
	CartItemID         int64
	FileName           string
	FileBytes          []byte
	ContentType        string
	ContentDisposition string
	Length             int64
	Name               string
	S3Location         string
	CreatedAt          time.Time
}
