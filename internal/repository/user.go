package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/card-transfer-service/internal/models"
)

const userColumns = "id, username, email, password_hash, first_name, last_name, role, enabled, created_at, updated_at"

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Role, &user.Enabled, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// CreateUser creates a new user in the database
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO bank.users (username, email, password_hash, first_name, last_name, role, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Role, user.Enabled).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user by id
func (s *Store) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM bank.users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// FindUserByUsername retrieves a user by username
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM bank.users WHERE username = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

// UsernameExists reports whether a user with the given username exists
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.userExists(ctx, `SELECT EXISTS (SELECT 1 FROM bank.users WHERE username = $1)`, username)
}

// EmailExists reports whether a user with the given email exists
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.userExists(ctx, `SELECT EXISTS (SELECT 1 FROM bank.users WHERE email = $1)`, email)
}

func (s *Store) userExists(ctx context.Context, query, arg string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// ListUsers retrieves users, newest first
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM bank.users
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.FirstName, &user.LastName, &user.Role, &user.Enabled, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser persists email, name and enabled-flag changes
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE bank.users
		SET email = $2, first_name = $3, last_name = $4, enabled = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := s.db.QueryRowContext(ctx, query, user.ID, user.Email, user.FirstName, user.LastName, user.Enabled).
		Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bank.users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
