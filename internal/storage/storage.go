// Package storage описывает контракт хранилища storyflow и результаты
// операций записи. Конкретные реализации живут в подпакетах postgres и mongo;
// приложение открывает одну из них при старте и передаёт всем сервисам.
package storage

import (
	"context"
	"time"

	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

const (
	// DriverPostgres реляционное хранилище (по умолчанию).
	DriverPostgres = "postgres"
	// DriverMongo документное хранилище.
	DriverMongo = "mongo"
)

// InsertResult результат вставки документа.
type InsertResult struct {
	InsertedID string `json:"insertedId"`
}

// UpdateResult результат обновления документа.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteResult результат удаления документа.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// UserStore операции над пользователями.
type UserStore interface {
	InsertUser(ctx context.Context, user models.User) (InsertResult, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	FindUsers(ctx context.Context, q query.Query) ([]models.User, error)
	SetUserRole(ctx context.Context, id string, role models.Role) (UpdateResult, error)
	SetPremiumTaken(ctx context.Context, email string, takenAt *time.Time) (UpdateResult, error)
	// ClearPremiumTakenBefore очищает premiumTaken, только если он строго раньше cutoff.
	ClearPremiumTakenBefore(ctx context.Context, email string, cutoff time.Time) (UpdateResult, error)
	DeleteUser(ctx context.Context, id string) (DeleteResult, error)
}

// PublisherStore операции над издателями.
type PublisherStore interface {
	InsertPublisher(ctx context.Context, publisher models.Publisher) (InsertResult, error)
	ListPublishers(ctx context.Context) ([]models.Publisher, error)
}

// ArticleStore операции над статьями.
type ArticleStore interface {
	InsertArticle(ctx context.Context, article models.Article) (InsertResult, error)
	FindArticleByID(ctx context.Context, id string) (*models.Article, error)
	FindArticles(ctx context.Context, q query.Query) ([]models.Article, error)
	CountArticles(ctx context.Context, q query.Query) (int64, error)
	SetArticleStatus(ctx context.Context, id string, status models.ArticleStatus, reason string) (UpdateResult, error)
	SetArticlePremium(ctx context.Context, id string, premium bool) (UpdateResult, error)
	IncrementArticleViews(ctx context.Context, id string) (UpdateResult, error)
	ReplaceArticle(ctx context.Context, id string, edit models.ArticleEdit, updatedAt time.Time) (UpdateResult, error)
	DeleteArticle(ctx context.Context, id string) (DeleteResult, error)
}

// Store общий дескриптор хранилища.
type Store interface {
	UserStore
	PublisherStore
	ArticleStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
