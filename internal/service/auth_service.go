package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"cartease/internal/domain"
	"cartease/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidToken indicates a bearer token that failed verification.
	ErrInvalidToken = errors.New("invalid token")
)

// AuthService registers local credentials and mints the bearer tokens whose
// claims become the external identity consumed by the cart service. An OAuth
// gateway issuing tokens with the same sub/name/email claims can stand in
// for it without touching the core.
type AuthService interface {
	Register(ctx context.Context, username, email, displayName, password string) (*domain.Credential, error)
	Authenticate(ctx context.Context, username, password string) (*domain.Credential, error)
	IssueToken(cred *domain.Credential) (string, time.Time, error)
	ParseToken(token string) (domain.Identity, error)
}

type authService struct {
	credentials repository.CredentialRepository
	secret      []byte
	tokenTTL    time.Duration
}

func NewAuthService(credentials repository.CredentialRepository, secret string, tokenTTL time.Duration) AuthService {
	return &authService{
		credentials: credentials,
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
	}
}

type identityClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (s *authService) Register(ctx context.Context, username, email, displayName, password string) (*domain.Credential, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	password = strings.TrimSpace(password)

	if username == "" {
		return nil, errors.New("username is required")
	}
	if email == "" {
		return nil, errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.New("email must be a valid address")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := &domain.Credential{
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}

	if _, err := s.credentials.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeCredential(cred), nil
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (*domain.Credential, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	cred, err := s.credentials.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return cred, nil
}

func (s *authService) IssueToken(cred *domain.Credential) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}

	now := time.Now().UTC()
	expires := now.Add(s.tokenTTL)

	claims := identityClaims{
		Name:  cred.DisplayName,
		Email: cred.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("local|%d", cred.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

func (s *authService) ParseToken(token string) (domain.Identity, error) {
	var claims identityClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrInvalidToken
	}

	return domain.Identity{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
	}, nil
}

func sanitizeCredential(cred *domain.Credential) *domain.Credential {
	if cred == nil {
		return nil
	}
	return &domain.Credential{
		Entity:      cred.Entity,
		Username:    cred.Username,
		Email:       cred.Email,
		DisplayName: cred.DisplayName,
		CreatedAt:   cred.CreatedAt,
		UpdatedAt:   cred.UpdatedAt,
	}
}
