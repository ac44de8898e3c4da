// Package articles содержит логику работы со статьями: отправку на модерацию,
// выборки для ленты и смену статуса администратором.
package articles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

// TrendingLimit максимальный размер выдачи популярных статей.
const TrendingLimit = 6

// Repository описывает контракт хранилища статей.
type Repository interface {
	InsertArticle(ctx context.Context, article models.Article) (storage.InsertResult, error)
	FindArticleByID(ctx context.Context, id string) (*models.Article, error)
	FindArticles(ctx context.Context, q query.Query) ([]models.Article, error)
	SetArticleStatus(ctx context.Context, id string, status models.ArticleStatus, reason string) (storage.UpdateResult, error)
	SetArticlePremium(ctx context.Context, id string, premium bool) (storage.UpdateResult, error)
	IncrementArticleViews(ctx context.Context, id string) (storage.UpdateResult, error)
	ReplaceArticle(ctx context.Context, id string, edit models.ArticleEdit, updatedAt time.Time) (storage.UpdateResult, error)
	DeleteArticle(ctx context.Context, id string) (storage.DeleteResult, error)
}

// Entitlement решает, может ли автор отправить ещё одну статью.
type Entitlement interface {
	CanSubmitArticle(ctx context.Context, email string) (bool, error)
}

// AdminChecker проверяет роль администратора.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// EventPublisher отправляет события в сервис уведомлений.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Author данные автора из токена.
type Author struct {
	Email string
	Name  string
	Photo string
}

// Filter параметры выборки /articles/filter. Пустые поля не ограничивают выдачу.
type Filter struct {
	Publisher string
	Tags      []string
	Title     string
	From      *time.Time
	To        *time.Time
}

// Service бизнес-логика статей.
type Service struct {
	repo        Repository
	entitlement Entitlement
	admins      AdminChecker
	events      EventPublisher
	now         func() time.Time
	log         *slog.Logger
}

// NewService создает новый экземпляр Service. events может быть nil.
func NewService(repo Repository, entitlement Entitlement, admins AdminChecker, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		entitlement: entitlement,
		admins:      admins,
		events:      events,
		now:         time.Now,
		log:         log,
	}
}

// Create отправляет статью на модерацию. Без премиум-доступа автор может
// отправить только одну статью.
func (s *Service) Create(ctx context.Context, author Author, edit models.ArticleEdit) (storage.InsertResult, error) {
	const op = "services.articles.Create"

	allowed, err := s.entitlement.CanSubmitArticle(ctx, author.Email)
	if err != nil {
		return storage.InsertResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if !allowed {
		return storage.InsertResult{}, fmt.Errorf("%s: %w", op, models.ErrNotEntitled)
	}

	tags := edit.Tags
	if tags == nil {
		tags = []string{}
	}
	article := models.Article{
		Title:       edit.Title,
		Description: edit.Description,
		Publisher:   edit.Publisher,
		Tags:        tags,
		Image:       edit.Image,
		AuthorEmail: author.Email,
		AuthorName:  author.Name,
		AuthorPhoto: author.Photo,
		PostedDate:  s.now().UTC(),
		Status:      models.StatusPending,
	}
	res, err := s.repo.InsertArticle(ctx, article)
	if err != nil {
		return storage.InsertResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// List возвращает все статьи.
func (s *Service) List(ctx context.Context) ([]models.Article, error) {
	return s.find(ctx, "services.articles.List", query.New())
}

// Get возвращает статью по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (*models.Article, error) {
	const op = "services.articles.Get"
	article, err := s.repo.FindArticleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return article, nil
}

// ByStatus статьи с заданным статусом модерации.
func (s *Service) ByStatus(ctx context.Context, status models.ArticleStatus) ([]models.Article, error) {
	return s.find(ctx, "services.articles.ByStatus", query.New(query.Eq(query.FieldStatus, status)))
}

// ByPublisher статьи издателя.
func (s *Service) ByPublisher(ctx context.Context, publisher string) ([]models.Article, error) {
	return s.find(ctx, "services.articles.ByPublisher", query.New(query.Eq(query.FieldPublisher, publisher)))
}

// Search ищет статьи по подстроке заголовка без учёта регистра.
func (s *Service) Search(ctx context.Context, title string) ([]models.Article, error) {
	return s.find(ctx, "services.articles.Search", query.New(query.Contains(query.FieldTitle, title)))
}

// ByAuthor статьи пользователя.
func (s *Service) ByAuthor(ctx context.Context, email string) ([]models.Article, error) {
	return s.find(ctx, "services.articles.ByAuthor", query.New(query.Eq(query.FieldAuthorEmail, email)))
}

// ByPremium статьи с заданным признаком премиум.
func (s *Service) ByPremium(ctx context.Context, premium bool) ([]models.Article, error) {
	return s.find(ctx, "services.articles.ByPremium", query.New(query.Eq(query.FieldIsPremium, premium)))
}

// Filter выборка одобренных статей по издателю, тегам, заголовку и дате публикации.
func (s *Service) Filter(ctx context.Context, f Filter) ([]models.Article, error) {
	q := query.New(query.Eq(query.FieldStatus, models.StatusApproved))
	if f.Publisher != "" {
		q = q.Where(query.Eq(query.FieldPublisher, f.Publisher))
	}
	if len(f.Tags) > 0 {
		q = q.Where(query.In(query.FieldTags, f.Tags...))
	}
	if f.Title != "" {
		q = q.Where(query.Contains(query.FieldTitle, f.Title))
	}
	if f.From != nil || f.To != nil {
		var from, to any
		if f.From != nil {
			from = *f.From
		}
		if f.To != nil {
			to = *f.To
		}
		q = q.Where(query.Range(query.FieldPostedDate, from, to))
	}
	return s.find(ctx, "services.articles.Filter", q.SortBy(query.FieldPostedDate, true))
}

// Trending до шести одобренных статей по убыванию просмотров.
func (s *Service) Trending(ctx context.Context) ([]models.Article, error) {
	q := query.New(query.Eq(query.FieldStatus, models.StatusApproved)).
		SortBy(query.FieldViews, true).
		WithLimit(TrendingLimit)
	return s.find(ctx, "services.articles.Trending", q)
}

// SetStatus меняет статус модерации. Причина отклонения при этом удаляется.
func (s *Service) SetStatus(ctx context.Context, id string, status models.ArticleStatus) (storage.UpdateResult, error) {
	return s.setStatus(ctx, "services.articles.SetStatus", id, status, "")
}

// Decline отклоняет статью. Пустая причина не сохраняется.
func (s *Service) Decline(ctx context.Context, id, reason string) (storage.UpdateResult, error) {
	return s.setStatus(ctx, "services.articles.Decline", id, models.StatusDeclined, reason)
}

// SetPremium помечает статью как премиум или снимает пометку.
func (s *Service) SetPremium(ctx context.Context, id string, premium bool) (storage.UpdateResult, error) {
	const op = "services.articles.SetPremium"
	res, err := s.repo.SetArticlePremium(ctx, id, premium)
	return matched(op, res, err)
}

// View увеличивает счётчик просмотров на единицу.
func (s *Service) View(ctx context.Context, id string) (storage.UpdateResult, error) {
	const op = "services.articles.View"
	res, err := s.repo.IncrementArticleViews(ctx, id)
	return matched(op, res, err)
}

// Edit заменяет редактируемые поля статьи. Разрешено автору и администратору.
func (s *Service) Edit(ctx context.Context, callerEmail, id string, edit models.ArticleEdit) (storage.UpdateResult, error) {
	const op = "services.articles.Edit"

	article, err := s.repo.FindArticleByID(ctx, id)
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if article.AuthorEmail != callerEmail {
		isAdmin, err := s.admins.IsAdmin(ctx, callerEmail)
		if err != nil {
			return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
		}
		if !isAdmin {
			return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
		}
	}

	if edit.Tags == nil {
		edit.Tags = []string{}
	}
	res, err := s.repo.ReplaceArticle(ctx, id, edit, s.now().UTC())
	return matched(op, res, err)
}

// Delete удаляет статью.
func (s *Service) Delete(ctx context.Context, id string) (storage.DeleteResult, error) {
	const op = "services.articles.Delete"
	res, err := s.repo.DeleteArticle(ctx, id)
	if err != nil {
		return storage.DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return res, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return res, nil
}

func (s *Service) find(ctx context.Context, op string, q query.Query) ([]models.Article, error) {
	articles, err := s.repo.FindArticles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return articles, nil
}

func (s *Service) setStatus(ctx context.Context, op, id string, status models.ArticleStatus, reason string) (storage.UpdateResult, error) {
	res, err := s.repo.SetArticleStatus(ctx, id, status, reason)
	res, err = matched(op, res, err)
	if err != nil {
		return res, err
	}
	s.notifyStatus(ctx, id, status, reason)
	return res, nil
}

// notifyStatus сообщает автору о решении модератора. Ошибки только логируются.
func (s *Service) notifyStatus(ctx context.Context, id string, status models.ArticleStatus, reason string) {
	if s.events == nil {
		return
	}
	article, err := s.repo.FindArticleByID(ctx, id)
	if err != nil {
		s.log.Warn("failed to load article for notification", slog.String("id", id), sl.Err(err))
		return
	}
	event := models.Event{
		Type:       models.EventArticleStatus,
		Email:      article.AuthorEmail,
		ArticleID:  id,
		Title:      article.Title,
		Status:     status,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish event", slog.String("type", event.Type), sl.Err(err))
	}
}

func matched(op string, res storage.UpdateResult, err error) (storage.UpdateResult, error) {
	if err != nil {
		return storage.UpdateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return res, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return res, nil
}
