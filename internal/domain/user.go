package domain

import "time"

// User is an internal account provisioned from an external authentication
// identity. One user owns zero or more cart items.
type User struct {
	Entity
	Username       string
	Email          string
	FirstName      string
	LastName       string
	AuthProviderID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Identity carries the claims supplied by the authentication collaborator.
// Subject is the opaque external identity; it is distinct from User.ID.
type Identity struct {
	Subject string
	Name    string
	Email   string
}

// Credential is a locally registered login used by the development token
// issuer. It is not the domain User; the cart core only ever sees the
// Identity claims minted from it.
type Credential struct {
	Entity
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
