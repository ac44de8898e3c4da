package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

const userSelect = `SELECT id, email, name, photo_url, role, premium_taken FROM users`

// InsertUser сохраняет пользователя. Повтор email даёт models.ErrAlreadyExists.
func (s *Storage) InsertUser(ctx context.Context, user models.User) (storage.InsertResult, error) {
	const op = "storage.postgres.InsertUser"
	if err := checkCtx(ctx, op); err != nil {
		return storage.InsertResult{}, err
	}

	id := uuid.NewString()
	role := user.Role
	if role == "" {
		role = models.RoleNone
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, name, photo_url, role, premium_taken)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, user.Email, user.Name, user.PhotoURL, string(role), user.PremiumTaken)
	if err != nil {
		return storage.InsertResult{}, translateErr(op, err)
	}
	return storage.InsertResult{InsertedID: id}, nil
}

// FindUserByEmail возвращает пользователя по email.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.FindUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, userSelect+` WHERE email = $1`, email))
	if err != nil {
		return nil, translateErr(op, err)
	}
	return u, nil
}

// FindUserByID возвращает пользователя по идентификатору.
func (s *Storage) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.postgres.FindUserByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if err := parseID(op, id); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, userSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(op, err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.FindUsers(ctx, query.New())
}

// FindUsers возвращает пользователей по фильтру.
func (s *Storage) FindUsers(ctx context.Context, q query.Query) ([]models.User, error) {
	const op = "storage.postgres.FindUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	sq, err := translate(userColumns, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, userSelect+sq.where+sq.orderBy+sq.limit, sq.args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// SetUserRole меняет роль пользователя.
func (s *Storage) SetUserRole(ctx context.Context, id string, role models.Role) (storage.UpdateResult, error) {
	const op = "storage.postgres.SetUserRole"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	if err := parseID(op, id); err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(op, res)
}

// SetPremiumTaken записывает или очищает (nil) начало премиум-доступа.
func (s *Storage) SetPremiumTaken(ctx context.Context, email string, takenAt *time.Time) (storage.UpdateResult, error) {
	const op = "storage.postgres.SetPremiumTaken"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET premium_taken = $2 WHERE email = $1`, email, takenAt)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(op, res)
}

// ClearPremiumTakenBefore очищает premium_taken, если доступ начат строго раньше cutoff.
func (s *Storage) ClearPremiumTakenBefore(ctx context.Context, email string, cutoff time.Time) (storage.UpdateResult, error) {
	const op = "storage.postgres.ClearPremiumTakenBefore"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET premium_taken = NULL WHERE email = $1 AND premium_taken < $2`, email, cutoff)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(op, res)
}

// DeleteUser удаляет пользователя по идентификатору.
func (s *Storage) DeleteUser(ctx context.Context, id string) (storage.DeleteResult, error) {
	const op = "storage.postgres.DeleteUser"
	if err := checkCtx(ctx, op); err != nil {
		return storage.DeleteResult{}, err
	}
	if err := parseID(op, id); err != nil {
		return storage.DeleteResult{}, err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storage.DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return deleteResult(op, res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u            models.User
		role         string
		premiumTaken sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PhotoURL, &role, &premiumTaken); err != nil {
		return nil, err
	}
	u.Role = models.ParseRole(role)
	if premiumTaken.Valid {
		t := premiumTaken.Time
		u.PremiumTaken = &t
	}
	return &u, nil
}
