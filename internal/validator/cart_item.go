package validator

import (
	"unicode/utf8"

	"cartease/internal/domain"
)

// ValidateCartItem checks the field rules for a cart item. Length limits
// count characters, not bytes.
func ValidateCartItem(item domain.CartItem) Result {
	var r Result

	if item.Name == "" {
		r.add("Name", "Name is required.")
	} else if utf8.RuneCountInString(item.Name) > 100 {
		r.add("Name", "Name must not exceed 100 characters.")
	}

	if utf8.RuneCountInString(item.Description) > 500 {
		r.add("Description", "Description must not exceed 500 characters.")
	}

	if !item.Price.IsPositive() {
		r.add("Price", "Price must be greater than 0.")
	}

	if item.Quantity <= 0 {
		r.add("Quantity", "Quantity must be greater than 0.")
	}

	return r
}
