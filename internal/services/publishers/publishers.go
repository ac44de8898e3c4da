// Package publishers логика работы с издателями.
package publishers

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

// Repository описывает контракт хранилища издателей.
type Repository interface {
	InsertPublisher(ctx context.Context, publisher models.Publisher) (storage.InsertResult, error)
	ListPublishers(ctx context.Context) ([]models.Publisher, error)
}

// Service бизнес-логика издателей.
type Service struct {
	repo Repository
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create добавляет издателя.
func (s *Service) Create(ctx context.Context, publisher models.Publisher) (storage.InsertResult, error) {
	const op = "services.publishers.Create"
	publisher.ID = ""
	res, err := s.repo.InsertPublisher(ctx, publisher)
	if err != nil {
		return storage.InsertResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// List возвращает всех издателей.
func (s *Service) List(ctx context.Context) ([]models.Publisher, error) {
	const op = "services.publishers.List"
	list, err := s.repo.ListPublishers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}
