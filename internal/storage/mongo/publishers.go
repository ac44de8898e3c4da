package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

type publisherDoc struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
	Logo string             `bson:"logo"`
}

// InsertPublisher сохраняет издателя.
func (s *Storage) InsertPublisher(ctx context.Context, publisher models.Publisher) (storage.InsertResult, error) {
	const op = "storage.mongo.InsertPublisher"
	if err := checkCtx(ctx, op); err != nil {
		return storage.InsertResult{}, err
	}

	res, err := s.publishers.InsertOne(ctx, publisherDoc{Name: publisher.Name, Logo: publisher.Logo})
	if err != nil {
		return storage.InsertResult{}, translateErr(op, err)
	}
	return insertedID(res), nil
}

// ListPublishers возвращает всех издателей в порядке имени.
func (s *Storage) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	const op = "storage.mongo.ListPublishers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	cur, err := s.publishers.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var docs []publisherDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publishers := make([]models.Publisher, 0, len(docs))
	for _, d := range docs {
		publishers = append(publishers, models.Publisher{ID: d.ID.Hex(), Name: d.Name, Logo: d.Logo})
	}
	return publishers, nil
}
