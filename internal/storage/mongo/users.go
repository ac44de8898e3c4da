package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name,omitempty"`
	PhotoURL     string             `bson:"photoURL,omitempty"`
	Role         string             `bson:"role,omitempty"`
	PremiumTaken *time.Time         `bson:"premiumTaken"`
}

func (d userDoc) model() models.User {
	return models.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		PhotoURL:     d.PhotoURL,
		Role:         models.ParseRole(d.Role),
		PremiumTaken: d.PremiumTaken,
	}
}

// InsertUser сохраняет пользователя; уникальный индекс по email отсекает дубликаты.
func (s *Storage) InsertUser(ctx context.Context, user models.User) (storage.InsertResult, error) {
	const op = "storage.mongo.InsertUser"
	if err := checkCtx(ctx, op); err != nil {
		return storage.InsertResult{}, err
	}

	role := user.Role
	if role == "" {
		role = models.RoleNone
	}
	res, err := s.users.InsertOne(ctx, userDoc{
		Email:        user.Email,
		Name:         user.Name,
		PhotoURL:     user.PhotoURL,
		Role:         string(role),
		PremiumTaken: user.PremiumTaken,
	})
	if err != nil {
		return storage.InsertResult{}, translateErr(op, err)
	}
	return insertedID(res), nil
}

// FindUserByEmail возвращает пользователя по email.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.mongo.FindUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var doc userDoc
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc); err != nil {
		return nil, translateErr(op, err)
	}
	u := doc.model()
	return &u, nil
}

// FindUserByID возвращает пользователя по ObjectID.
func (s *Storage) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.mongo.FindUserByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	if err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, translateErr(op, err)
	}
	u := doc.model()
	return &u, nil
}

// ListUsers возвращает всех пользователей.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.FindUsers(ctx, query.New())
}

// FindUsers возвращает пользователей по фильтру.
func (s *Storage) FindUsers(ctx context.Context, q query.Query) ([]models.User, error) {
	const op = "storage.mongo.FindUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	f, err := filter(userFields, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts, err := findOptions(userFields, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cur, err := s.users.Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.model())
	}
	return users, nil
}

// SetUserRole меняет роль пользователя.
func (s *Storage) SetUserRole(ctx context.Context, id string, role models.Role) (storage.UpdateResult, error) {
	const op = "storage.mongo.SetUserRole"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "role", Value: string(role)}}}})
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(res), nil
}

// SetPremiumTaken записывает или очищает (nil) начало премиум-доступа.
func (s *Storage) SetPremiumTaken(ctx context.Context, email string, takenAt *time.Time) (storage.UpdateResult, error) {
	const op = "storage.mongo.SetPremiumTaken"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "premiumTaken", Value: takenAt}}}})
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(res), nil
}

// ClearPremiumTakenBefore очищает premiumTaken, если доступ начат строго раньше cutoff.
func (s *Storage) ClearPremiumTakenBefore(ctx context.Context, email string, cutoff time.Time) (storage.UpdateResult, error) {
	const op = "storage.mongo.ClearPremiumTakenBefore"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{
			{Key: "email", Value: email},
			{Key: "premiumTaken", Value: bson.D{{Key: "$lt", Value: cutoff}}},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "premiumTaken", Value: nil}}}})
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(res), nil
}

// DeleteUser удаляет пользователя.
func (s *Storage) DeleteUser(ctx context.Context, id string) (storage.DeleteResult, error) {
	const op = "storage.mongo.DeleteUser"
	if err := checkCtx(ctx, op); err != nil {
		return storage.DeleteResult{}, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return storage.DeleteResult{}, err
	}

	res, err := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return storage.DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return storage.DeleteResult{DeletedCount: res.DeletedCount}, nil
}
