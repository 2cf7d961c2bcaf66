package repository

import (
	"context"

	"cartease/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Repository[domain.User]
	Init(ctx context.Context) error
	GetByAuthProviderID(ctx context.Context, authProviderID string) (*domain.User, error)
}

// CredentialRepository stores locally registered logins for the token issuer.
type CredentialRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, cred *domain.Credential) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.Credential, error)
}
