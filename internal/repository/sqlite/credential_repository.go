package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cartease/internal/domain"
	"cartease/internal/repository"
)

const createCredentialsTable = `
CREATE TABLE IF NOT EXISTS credentials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) repository.CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCredentialsTable); err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) (int64, error) {
	now := time.Now().UTC()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO credentials (username, email, display_name, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		cred.Username,
		cred.Email,
		cred.DisplayName,
		cred.PasswordHash,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return 0, fmt.Errorf("insert credential: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert credential: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("credential last insert id: %w", err)
	}
	cred.ID = id
	return id, nil
}

func (r *CredentialRepository) GetByUsername(ctx context.Context, username string) (*domain.Credential, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, email, display_name, password_hash, created_at, updated_at
FROM credentials
WHERE username = ?`,
		username,
	)

	var cred domain.Credential
	if err := row.Scan(
		&cred.ID,
		&cred.Username,
		&cred.Email,
		&cred.DisplayName,
		&cred.PasswordHash,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	return &cred, nil
}
