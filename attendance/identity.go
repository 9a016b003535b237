package attendance

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"zapsters-attendance-backend/models"
)

// Placeholders assigned to auto-provisioned accounts until an admin moves
// them to their real domain/batch.
const (
	DefaultDomainID = "web-dev"
	DefaultBatchID  = "batch-a"
)

// TokenClaims is the identity extracted from a verified token.
type TokenClaims struct {
	UID   string
	Email string
	Name  string
}

// ResolveIdentity maps verified token claims to a stored user, looking up by
// uid first and then by email. A caller that exists in the identity provider
// but not in the store is provisioned as a student with placeholder
// domain/batch.
func (svc *Service) ResolveIdentity(ctx context.Context, claims TokenClaims) (models.User, error) {
	u, err := svc.store.GetUserByUID(ctx, claims.UID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	if claims.Email != "" {
		u, err = svc.store.GetUserByEmail(ctx, claims.Email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}
	}

	name := claims.Name
	if name == "" {
		name = "Student"
	}
	u = models.User{
		ID:        uuid.NewString(),
		UID:       claims.UID,
		Email:     claims.Email,
		Name:      name,
		Role:      models.UserRoleStudent,
		DomainID:  DefaultDomainID,
		BatchID:   DefaultBatchID,
		CreatedAt: svc.now(),
	}
	log.Printf("provisioning new user %s as %s/%s", claims.Email, u.DomainID, u.BatchID)
	if err := svc.store.CreateUser(ctx, u); err != nil {
		return models.User{}, err
	}
	return u, nil
}
