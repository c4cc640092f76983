package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookingapp/auth-service/internal/models"
	"github.com/bookingapp/auth-service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, email, user_name, password_hash, approved, blocked, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.UserName,
		user.PasswordHash,
		user.Approved,
		user.Blocked,
		user.Roles,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByEmail находит пользователя по email.
// Колонка email — CITEXT, сравнение без учета регистра выполняет БД.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `
		SELECT id, email, user_name, password_hash, approved, blocked, roles, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return s.scanUser(ctx, op, query, email)
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
		SELECT id, email, user_name, password_hash, approved, blocked, roles, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return s.scanUser(ctx, op, query, id)
}

// AddUserRole добавляет роль в массив ролей пользователя, если её там нет.
func (s *Storage) AddUserRole(ctx context.Context, id uuid.UUID, role string) error {
	const op = "storage.postgres.AddUserRole"

	query := `
		UPDATE users
		SET roles = array_append(roles, $2), updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(roles))
	`

	cmdTag, err := s.db.Exec(ctx, query, id, role)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// RowsAffected()==0 означает либо отсутствие пользователя, либо уже
	// имеющуюся роль; различаем отдельным запросом.
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if !exists {
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
	}

	return nil
}

func (s *Storage) scanUser(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.UserName,
		&user.PasswordHash,
		&user.Approved,
		&user.Blocked,
		&user.Roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}
