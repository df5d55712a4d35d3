package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

// ListAdminUsers returns every staff account. Superadmin only.
func (s *Service) ListAdminUsers(ctx context.Context, claims models.StaffClaims) ([]models.AdminUser, error) {
	if err := requireSuperadmin(claims); err != nil {
		return nil, err
	}
	return s.store.ListAdmins(ctx)
}

func (s *Service) CreateAdminUser(ctx context.Context, claims models.StaffClaims, email string, role models.AdminRole) (*models.AdminUser, error) {
	if err := requireSuperadmin(claims); err != nil {
		return nil, err
	}

	email = models.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidation("email", "valid email required")
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}

	admin := &models.AdminUser{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	s.logger.Infof("Admin %s (%s) created by %s", admin.Email, admin.Role, claims.Email)
	return admin, nil
}

// UpdateAdminRole changes a staff account's role. Demoting the last
// remaining superadmin is rejected: it would lock everyone out of user
// and raffle management.
func (s *Service) UpdateAdminRole(ctx context.Context, claims models.StaffClaims, id string, role models.AdminRole) error {
	if err := requireSuperadmin(claims); err != nil {
		return err
	}
	if err := validateRole(role); err != nil {
		return err
	}

	if role != models.RoleSuperadmin {
		if err := s.guardLastSuperadmin(ctx, id); err != nil {
			return err
		}
	}
	if err := s.store.UpdateAdminRole(ctx, id, role); err != nil {
		return err
	}
	s.logger.Infof("Admin %s role set to %s by %s", id, role, claims.Email)
	return nil
}

func (s *Service) DeleteAdminUser(ctx context.Context, claims models.StaffClaims, id string) error {
	if err := requireSuperadmin(claims); err != nil {
		return err
	}
	if err := s.guardLastSuperadmin(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteAdmin(ctx, id); err != nil {
		return err
	}
	s.logger.Infof("Admin %s deleted by %s", id, claims.Email)
	return nil
}

// guardLastSuperadmin fails when id is the only superadmin left.
func (s *Service) guardLastSuperadmin(ctx context.Context, id string) error {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return err
	}

	superadmins := 0
	targetIsSuperadmin := false
	for _, a := range admins {
		if a.Role == models.RoleSuperadmin {
			superadmins++
			if a.ID == id {
				targetIsSuperadmin = true
			}
		}
	}
	if targetIsSuperadmin && superadmins == 1 {
		return apperrors.NewValidation("role", "cannot remove the last superadmin")
	}
	return nil
}

func validateRole(role models.AdminRole) error {
	if role != models.RoleSuperadmin && role != models.RolePagos {
		return apperrors.NewValidation("role", "must be superadmin or pagos")
	}
	return nil
}
