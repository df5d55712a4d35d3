package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

func (s *Store) ListAdmins(ctx context.Context) ([]models.AdminUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, role, created_at FROM admins ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []models.AdminUser
	for rows.Next() {
		var a models.AdminUser
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Email, &a.Role, &createdAt); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var a models.AdminUser
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, role, created_at FROM admins WHERE email = ?`,
		email).Scan(&a.ID, &a.Email, &a.Role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (s *Store) CreateAdmin(ctx context.Context, a *models.AdminUser) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (id, email, role, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Email, a.Role, fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create admin %s: %w", a.Email, err)
	}
	return nil
}

func (s *Store) UpdateAdminRole(ctx context.Context, id string, role models.AdminRole) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE admins SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("update admin %s role: %w", id, err)
	}
	if rowsAffected(res) == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete admin %s: %w", id, err)
	}
	if rowsAffected(res) == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
