package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

// InsertPublisher сохраняет издателя.
func (s *Storage) InsertPublisher(ctx context.Context, publisher models.Publisher) (storage.InsertResult, error) {
	const op = "storage.postgres.InsertPublisher"
	if err := checkCtx(ctx, op); err != nil {
		return storage.InsertResult{}, err
	}

	id := uuid.NewString()
	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO publishers (id, name, logo) VALUES ($1, $2, $3)`,
		id, publisher.Name, publisher.Logo); err != nil {
		return storage.InsertResult{}, translateErr(op, err)
	}
	return storage.InsertResult{InsertedID: id}, nil
}

// ListPublishers возвращает всех издателей в порядке имени.
func (s *Storage) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	const op = "storage.postgres.ListPublishers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, logo FROM publishers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	publishers := make([]models.Publisher, 0)
	for rows.Next() {
		var p models.Publisher
		if err := rows.Scan(&p.ID, &p.Name, &p.Logo); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publishers = append(publishers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return publishers, nil
}
