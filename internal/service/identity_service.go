package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"cartease/internal/domain"
	"cartease/internal/repository"
	"cartease/internal/validator"
)

// ErrUnresolvedIdentity indicates the external identity could not be mapped
// to a user and provisioning one from the supplied claims failed.
var ErrUnresolvedIdentity = errors.New("identity could not be resolved")

// IdentityService maps an external authentication identity to an internal
// user, provisioning one on first sight. It runs once per authenticated
// request; results are never cached within a request.
type IdentityService interface {
	ResolveOrCreate(ctx context.Context, identity domain.Identity) (*domain.User, error)
}

type identityService struct {
	users  repository.UserRepository
	logger *logrus.Logger
}

func NewIdentityService(users repository.UserRepository, logger *logrus.Logger) IdentityService {
	return &identityService{users: users, logger: logger}
}

func (s *identityService) ResolveOrCreate(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	subject := strings.TrimSpace(identity.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrUnresolvedIdentity)
	}

	user, err := s.users.GetByAuthProviderID(ctx, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user by provider id: %w", err)
	}

	candidate := userFromIdentity(identity, subject)

	if result := validator.ValidateUser(candidate); !result.IsValid() {
		s.logger.WithField("subject", subject).
			Warnf("cannot provision user: %s", strings.Join(result.Messages(), "; "))
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedIdentity, strings.Join(result.Messages(), "; "))
	}

	if _, err := s.users.Add(ctx, &candidate); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// either we lost a provisioning race with a concurrent first
			// request for the same subject, or a different subject already
			// claimed this email-derived username
			existing, lookupErr := s.users.GetByAuthProviderID(ctx, subject)
			if lookupErr == nil {
				return existing, nil
			}
			if errors.Is(lookupErr, repository.ErrNotFound) {
				s.logger.WithField("subject", subject).
					Warnf("cannot provision user: username %s already taken", candidate.Username)
				return nil, fmt.Errorf("%w: username %s already taken", ErrUnresolvedIdentity, candidate.Username)
			}
			return nil, fmt.Errorf("reload user after provisioning race: %v", lookupErr)
		}
		return nil, fmt.Errorf("provision user: %w", err)
	}

	s.logger.WithField("subject", subject).Infof("provisioned user %d", candidate.ID)
	return &candidate, nil
}

// userFromIdentity builds a user from the available claims: the display
// name splits into first/last on the first space and the email claim doubles
// as the username.
func userFromIdentity(identity domain.Identity, subject string) domain.User {
	first, last := splitName(identity.Name)
	return domain.User{
		Username:       strings.TrimSpace(identity.Email),
		Email:          strings.TrimSpace(identity.Email),
		FirstName:      first,
		LastName:       last,
		AuthProviderID: subject,
	}
}

func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	if i := strings.Index(name, " "); i > 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	// no surname in the claims; both name fields must be non-empty, so the
	// single token fills both rather than inventing a placeholder
	return name, name
}
