package validator

import (
	"net/mail"
	"unicode/utf8"

	"cartease/internal/domain"
)

// ValidateUser checks the field rules for a user. Username must be the
// user's email-format login name, matching how identity provisioning
// fills it from the email claim.
func ValidateUser(user domain.User) Result {
	var r Result

	if user.Username == "" {
		r.add("Username", "Username is required.")
	} else if !isEmailAddress(user.Username) {
		r.add("Username", "Username must be a valid email address.")
	}

	if user.Email == "" {
		r.add("Email", "Email is required.")
	} else if !isEmailAddress(user.Email) {
		r.add("Email", "Invalid email format.")
	}

	if user.FirstName == "" {
		r.add("FirstName", "First name is required.")
	} else if utf8.RuneCountInString(user.FirstName) > 20 {
		r.add("FirstName", "First name must not exceed 20 characters.")
	}

	if user.LastName == "" {
		r.add("LastName", "Last name is required.")
	} else if utf8.RuneCountInString(user.LastName) > 20 {
		r.add("LastName", "Last name must not exceed 20 characters.")
	}

	return r
}

func isEmailAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
