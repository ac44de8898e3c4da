// Package mongo реализует storage.Store поверх MongoDB: коллекции users,
// publishers и articles в одной базе, идентификаторы ObjectID.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

const (
	usersCollection      = "users"
	publishersCollection = "publishers"
	articlesCollection   = "articles"
)

var _ storage.Store = (*Storage)(nil)

// Storage держит клиент MongoDB и ссылки на коллекции.
type Storage struct {
	client     *mongo.Client
	users      *mongo.Collection
	publishers *mongo.Collection
	articles   *mongo.Collection
}

// New подключается к MongoDB, проверяет соединение и создаёт индексы.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongo.New"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:     client,
		users:      db.Collection(usersCollection),
		publishers: db.Collection(publishersCollection),
		articles:   db.Collection(articlesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	}); err != nil {
		return err
	}
	_, err := s.articles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "authorEmail", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "views", Value: -1}}},
		{Keys: bson.D{{Key: "publisher", Value: 1}}},
	})
	return err
}

// Ping проверяет соединение.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close отключает клиента.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func checkCtx(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}

func objectID(op, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s: %w", op, models.ErrInvalidID)
	}
	return oid, nil
}

func translateErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func insertedID(res *mongo.InsertOneResult) storage.InsertResult {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return storage.InsertResult{InsertedID: oid.Hex()}
	}
	return storage.InsertResult{InsertedID: fmt.Sprint(res.InsertedID)}
}

func updateResult(res *mongo.UpdateResult) storage.UpdateResult {
	return storage.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}
}
