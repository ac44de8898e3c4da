// Package users содержит логику работы с пользователями: регистрацию при первом входе,
// назначение администратора и учёт премиум-доступа.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

// MessageUserExists маркер ответа при повторной регистрации.
const MessageUserExists = "User already exists"

// Repository описывает контракт хранилища пользователей.
type Repository interface {
	InsertUser(ctx context.Context, user models.User) (storage.InsertResult, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserRole(ctx context.Context, id string, role models.Role) (storage.UpdateResult, error)
	SetPremiumTaken(ctx context.Context, email string, takenAt *time.Time) (storage.UpdateResult, error)
	DeleteUser(ctx context.Context, id string) (storage.DeleteResult, error)
}

// Reconciler сбрасывает истёкший премиум-доступ при входе.
type Reconciler interface {
	Reconcile(ctx context.Context, user *models.User) (*models.User, error)
}

// CreateResult ответ на регистрацию. InsertedID равен nil, если пользователь уже был.
type CreateResult struct {
	Message    string  `json:"message,omitempty"`
	InsertedID *string `json:"insertedId"`
}

// Service бизнес-логика пользователей.
type Service struct {
	repo       Repository
	reconciler Reconciler
	now        func() time.Time
	log        *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, reconciler Reconciler, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		reconciler: reconciler,
		now:        time.Now,
		log:        log,
	}
}

// Create вставляет пользователя, если его email ещё не встречался.
// Роль и премиум-доступ клиент задать не может.
func (s *Service) Create(ctx context.Context, user models.User) (CreateResult, error) {
	const op = "services.users.Create"

	existing, err := s.repo.FindUserByEmail(ctx, user.Email)
	switch {
	case err == nil && existing != nil:
		return CreateResult{Message: MessageUserExists}, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return CreateResult{}, fmt.Errorf("%s: %w", op, err)
	}

	user.ID = ""
	user.Role = models.RoleNone
	user.PremiumTaken = nil

	res, err := s.repo.InsertUser(ctx, user)
	if errors.Is(err, models.ErrAlreadyExists) {
		// параллельная регистрация с тем же email
		return CreateResult{Message: MessageUserExists}, nil
	}
	if err != nil {
		return CreateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.String("email", user.Email), slog.String("id", res.InsertedID))
	return CreateResult{InsertedID: &res.InsertedID}, nil
}

// List возвращает всех пользователей.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	const op = "services.users.List"
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// Get возвращает пользователя по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	const op = "services.users.Get"
	user, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// IsAdmin сообщает, является ли пользователь администратором.
// Неизвестный пользователь администратором не является.
func (s *Service) IsAdmin(ctx context.Context, email string) (bool, error) {
	const op = "services.users.IsAdmin"
	user, err := s.repo.FindUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return user.Role.IsAdmin(), nil
}

// Promote назначает пользователя администратором.
func (s *Service) Promote(ctx context.Context, id string) (storage.UpdateResult, error) {
	const op = "services.users.Promote"
	res, err := s.repo.SetUserRole(ctx, id, models.RoleAdmin)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return res, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return res, nil
}

// MarkPremium отмечает начало премиум-доступа текущим временем сервера.
func (s *Service) MarkPremium(ctx context.Context, email string) (storage.UpdateResult, error) {
	const op = "services.users.MarkPremium"
	now := s.now().UTC()
	res, err := s.repo.SetPremiumTaken(ctx, email, &now)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return res, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	s.log.Info("premium granted", slog.String("email", email), slog.Time("taken_at", now))
	return res, nil
}

// ClearPremium снимает премиум-доступ по решению администратора.
func (s *Service) ClearPremium(ctx context.Context, email string) (storage.UpdateResult, error) {
	const op = "services.users.ClearPremium"
	res, err := s.repo.SetPremiumTaken(ctx, email, nil)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return res, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return res, nil
}

// Delete удаляет пользователя по идентификатору.
func (s *Service) Delete(ctx context.Context, id string) (storage.DeleteResult, error) {
	const op = "services.users.Delete"
	res, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return storage.DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return res, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return res, nil
}

// Login возвращает запись пользователя после сверки срока премиум-доступа.
func (s *Service) Login(ctx context.Context, email string) (*models.User, error) {
	const op = "services.users.Login"
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err = s.reconciler.Reconcile(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
