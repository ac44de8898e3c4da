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

type articleDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Title          string             `bson:"title"`
	Description    string             `bson:"description"`
	Publisher      string             `bson:"publisher"`
	Tags           []string           `bson:"tags"`
	Image          string             `bson:"image"`
	AuthorEmail    string             `bson:"authorEmail"`
	AuthorName     string             `bson:"authorName,omitempty"`
	AuthorPhoto    string             `bson:"authorPhoto,omitempty"`
	PostedDate     time.Time          `bson:"postedDate"`
	UpdatedAt      *time.Time         `bson:"updatedAt,omitempty"`
	Status         string             `bson:"status"`
	DeclinedReason string             `bson:"declinedReason,omitempty"`
	IsPremium      bool               `bson:"isPremium"`
	Views          int64              `bson:"views"`
}

func newArticleDoc(a models.Article) articleDoc {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return articleDoc{
		Title:          a.Title,
		Description:    a.Description,
		Publisher:      a.Publisher,
		Tags:           tags,
		Image:          a.Image,
		AuthorEmail:    a.AuthorEmail,
		AuthorName:     a.AuthorName,
		AuthorPhoto:    a.AuthorPhoto,
		PostedDate:     a.PostedDate,
		UpdatedAt:      a.UpdatedAt,
		Status:         string(a.Status),
		DeclinedReason: a.DeclinedReason,
		IsPremium:      a.IsPremium,
		Views:          a.Views,
	}
}

func (d articleDoc) model() models.Article {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Article{
		ID:             d.ID.Hex(),
		Title:          d.Title,
		Description:    d.Description,
		Publisher:      d.Publisher,
		Tags:           tags,
		Image:          d.Image,
		AuthorEmail:    d.AuthorEmail,
		AuthorName:     d.AuthorName,
		AuthorPhoto:    d.AuthorPhoto,
		PostedDate:     d.PostedDate,
		UpdatedAt:      d.UpdatedAt,
		Status:         models.ArticleStatus(d.Status),
		DeclinedReason: d.DeclinedReason,
		IsPremium:      d.IsPremium,
		Views:          d.Views,
	}
}

// InsertArticle сохраняет статью.
func (s *Storage) InsertArticle(ctx context.Context, a models.Article) (storage.InsertResult, error) {
	const op = "storage.mongo.InsertArticle"
	if err := checkCtx(ctx, op); err != nil {
		return storage.InsertResult{}, err
	}

	res, err := s.articles.InsertOne(ctx, newArticleDoc(a))
	if err != nil {
		return storage.InsertResult{}, translateErr(op, err)
	}
	return insertedID(res), nil
}

// FindArticleByID возвращает статью по ObjectID.
func (s *Storage) FindArticleByID(ctx context.Context, id string) (*models.Article, error) {
	const op = "storage.mongo.FindArticleByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return nil, err
	}

	var doc articleDoc
	if err := s.articles.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, translateErr(op, err)
	}
	a := doc.model()
	return &a, nil
}

// FindArticles возвращает статьи по фильтру.
func (s *Storage) FindArticles(ctx context.Context, q query.Query) ([]models.Article, error) {
	const op = "storage.mongo.FindArticles"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	f, err := filter(articleFields, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts, err := findOptions(articleFields, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cur, err := s.articles.Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var docs []articleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	articles := make([]models.Article, 0, len(docs))
	for _, d := range docs {
		articles = append(articles, d.model())
	}
	return articles, nil
}

// CountArticles считает статьи по фильтру.
func (s *Storage) CountArticles(ctx context.Context, q query.Query) (int64, error) {
	const op = "storage.mongo.CountArticles"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	f, err := filter(articleFields, query.New(q.Predicates...))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := s.articles.CountDocuments(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// SetArticleStatus меняет статус. Причина хранится только у declined с непустой причиной.
func (s *Storage) SetArticleStatus(ctx context.Context, id string, status models.ArticleStatus, reason string) (storage.UpdateResult, error) {
	const op = "storage.mongo.SetArticleStatus"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return storage.UpdateResult{}, err
	}

	var update bson.D
	if status == models.StatusDeclined && reason != "" {
		update = bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(status)},
			{Key: "declinedReason", Value: reason},
		}}}
	} else {
		update = bson.D{
			{Key: "$set", Value: bson.D{{Key: "status", Value: string(status)}}},
			{Key: "$unset", Value: bson.D{{Key: "declinedReason", Value: ""}}},
		}
	}

	res, err := s.articles.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(res), nil
}

// SetArticlePremium меняет признак премиум-статьи.
func (s *Storage) SetArticlePremium(ctx context.Context, id string, premium bool) (storage.UpdateResult, error) {
	const op = "storage.mongo.SetArticlePremium"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.articles.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "isPremium", Value: premium}}}})
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(res), nil
}

// IncrementArticleViews атомарно увеличивает счётчик через $inc.
func (s *Storage) IncrementArticleViews(ctx context.Context, id string) (storage.UpdateResult, error) {
	const op = "storage.mongo.IncrementArticleViews"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return storage.UpdateResult{}, err
	}

	res, err := s.articles.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}})
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(res), nil
}

// ReplaceArticle заменяет редактируемые поля и проставляет updatedAt.
func (s *Storage) ReplaceArticle(ctx context.Context, id string, edit models.ArticleEdit, updatedAt time.Time) (storage.UpdateResult, error) {
	const op = "storage.mongo.ReplaceArticle"
	if err := checkCtx(ctx, op); err != nil {
		return storage.UpdateResult{}, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return storage.UpdateResult{}, err
	}

	tags := edit.Tags
	if tags == nil {
		tags = []string{}
	}
	res, err := s.articles.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "title", Value: edit.Title},
			{Key: "description", Value: edit.Description},
			{Key: "publisher", Value: edit.Publisher},
			{Key: "tags", Value: tags},
			{Key: "image", Value: edit.Image},
			{Key: "updatedAt", Value: updatedAt},
		}}})
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return updateResult(res), nil
}

// DeleteArticle удаляет статью.
func (s *Storage) DeleteArticle(ctx context.Context, id string) (storage.DeleteResult, error) {
	const op = "storage.mongo.DeleteArticle"
	if err := checkCtx(ctx, op); err != nil {
		return storage.DeleteResult{}, err
	}
	oid, err := objectID(op, id)
	if err != nil {
		return storage.DeleteResult{}, err
	}

	res, err := s.articles.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return storage.DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return storage.DeleteResult{DeletedCount: res.DeletedCount}, nil
}
