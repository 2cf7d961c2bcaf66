package validator

import (
	"unicode/utf8"

	"cartease/internal/domain"
)

// Image content types accepted for upload.
var allowedContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
}

// ValidateItemImage checks the field rules for an uploaded item image.
func ValidateItemImage(img domain.ItemImage) Result {
	var r Result

	if img.FileName == "" {
		r.add("FileName", "File name is required.")
	} else if utf8.RuneCountInString(img.FileName) > 100 {
		r.add("FileName", "File name must not exceed 100 characters.")
	}

	if len(img.FileBytes) == 0 {
		r.add("FileBytes", "File bytes are required.")
	}

	if img.ContentType == "" {
		r.add("ContentType", "Content type is required.")
	} else {
		if utf8.RuneCountInString(img.ContentType) > 50 {
			r.add("ContentType", "Content type must not exceed 50 characters.")
		}
		if !isAllowedContentType(img.ContentType) {
			r.add("ContentType", "Invalid image content type. Supported types are JPEG, PNG, and GIF.")
		}
	}

	if utf8.RuneCountInString(img.ContentDisposition) > 100 {
		r.add("ContentDisposition", "Content disposition must not exceed 100 characters.")
	}

	if img.Length <= 0 {
		r.add("Length", "Length must be greater than 0.")
	}

	if utf8.RuneCountInString(img.Name) > 50 {
		r.add("Name", "Name must not exceed 50 characters.")
	}

	return r
}

func isAllowedContentType(contentType string) bool {
	for _, allowed := range allowedContentTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}
