// Package articles реализует HTTP-обработчики статей: отправку на модерацию,
// выборки, модерацию и редактирование.
package articles

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storyflow/internal/http/middlewarectx"
	"github.com/magabrotheeeer/storyflow/internal/http/response"
	"github.com/magabrotheeeer/storyflow/internal/models"
	articleservice "github.com/magabrotheeeer/storyflow/internal/services/articles"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

const dateLayout = "2006-01-02"

// CreateRequest статья, отправляемая на модерацию.
type CreateRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Publisher   string   `json:"publisher" validate:"required"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image"`
	AuthorPhoto string   `json:"authorPhoto"`
}

// UpdateRequest новые значения редактируемых полей.
type UpdateRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Publisher   string   `json:"publisher" validate:"required"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image"`
}

// StatusRequest новый статус модерации.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved declined"`
}

// PremiumRequest признак премиум-статьи.
type PremiumRequest struct {
	IsPremium *bool `json:"isPremium" validate:"required"`
}

// DeclineRequest причина отклонения, может быть пустой.
type DeclineRequest struct {
	Reason string `json:"reason"`
}

// Service описывает операции над статьями.
type Service interface {
	Create(ctx context.Context, author articleservice.Author, edit models.ArticleEdit) (storage.InsertResult, error)
	List(ctx context.Context) ([]models.Article, error)
	Get(ctx context.Context, id string) (*models.Article, error)
	ByStatus(ctx context.Context, status models.ArticleStatus) ([]models.Article, error)
	ByPublisher(ctx context.Context, publisher string) ([]models.Article, error)
	Search(ctx context.Context, title string) ([]models.Article, error)
	ByAuthor(ctx context.Context, email string) ([]models.Article, error)
	ByPremium(ctx context.Context, premium bool) ([]models.Article, error)
	Filter(ctx context.Context, f articleservice.Filter) ([]models.Article, error)
	Trending(ctx context.Context) ([]models.Article, error)
	SetStatus(ctx context.Context, id string, status models.ArticleStatus) (storage.UpdateResult, error)
	Decline(ctx context.Context, id, reason string) (storage.UpdateResult, error)
	SetPremium(ctx context.Context, id string, premium bool) (storage.UpdateResult, error)
	View(ctx context.Context, id string) (storage.UpdateResult, error)
	Edit(ctx context.Context, callerEmail, id string, edit models.ArticleEdit) (storage.UpdateResult, error)
	Delete(ctx context.Context, id string) (storage.DeleteResult, error)
}

// Handler обрабатывает запросы к /articles и /trending-articles.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func badRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string) {
	log.Info("bad request", slog.String("reason", msg))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, response.Error(msg))
}

func unauthorized(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	log.Error("email not found in context")
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error("unauthorized"))
}

// Create godoc
// @Summary Отправить статью на модерацию
// @Description Без активного премиум-доступа пользователь может отправить только одну статью.
// @Tags Articles
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body CreateRequest true "Статья"
// @Success 201 {object} storage.InsertResult
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Лимит бесплатных статей исчерпан"
// @Failure 422 {object} response.ErrorResponse
// @Router /articles [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.Create")

	email, ok := middlewarectx.EmailFromContext(r.Context())
	if !ok {
		unauthorized(w, r, log)
		return
	}
	name := middlewarectx.NameFromContext(r.Context())

	var req CreateRequest
	if !response.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	res, err := h.service.Create(r.Context(),
		articleservice.Author{Email: email, Name: name, Photo: req.AuthorPhoto},
		models.ArticleEdit{
			Title:       req.Title,
			Description: req.Description,
			Publisher:   req.Publisher,
			Tags:        req.Tags,
			Image:       req.Image,
		})
	if err != nil {
		response.Fail(w, r, log, "failed to create article", err)
		return
	}
	log.Info("article submitted", slog.String("id", res.InsertedID), slog.String("author", email))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}

// List godoc
// @Summary Все статьи
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Success 200 {array} models.Article
// @Failure 403 {object} response.ErrorResponse
// @Router /articles [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.List")
	list, err := h.service.List(r.Context())
	h.writeList(w, r, log, list, err)
}

// Get godoc
// @Summary Статья по идентификатору
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID статьи"
// @Success 200 {object} models.Article
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /articles/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.Get")

	article, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, "failed to get article", err)
		return
	}
	render.JSON(w, r, article)
}

// ByStatus godoc
// @Summary Статьи по статусу модерации
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param status path string true "pending, approved или declined"
// @Success 200 {array} models.Article
// @Failure 400 {object} response.ErrorResponse
// @Router /articles/status/{status} [get]
func (h *Handler) ByStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.ByStatus")

	status, err := models.ParseArticleStatus(chi.URLParam(r, "status"))
	if err != nil {
		badRequest(w, r, log, err.Error())
		return
	}
	list, err := h.service.ByStatus(r.Context(), status)
	h.writeList(w, r, log, list, err)
}

// ByPublisher godoc
// @Summary Статьи издателя
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param publisher path string true "Издатель"
// @Success 200 {array} models.Article
// @Router /articles/publisher/{publisher} [get]
func (h *Handler) ByPublisher(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.ByPublisher")
	list, err := h.service.ByPublisher(r.Context(), chi.URLParam(r, "publisher"))
	h.writeList(w, r, log, list, err)
}

// Search godoc
// @Summary Поиск по заголовку
// @Description Подстрока без учёта регистра.
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param title path string true "Часть заголовка"
// @Success 200 {array} models.Article
// @Router /articles/search/{title} [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.Search")
	list, err := h.service.Search(r.Context(), chi.URLParam(r, "title"))
	h.writeList(w, r, log, list, err)
}

// ByAuthor godoc
// @Summary Статьи автора
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param email path string true "Email автора"
// @Success 200 {array} models.Article
// @Failure 403 {object} response.ErrorResponse
// @Router /articles/user/{email} [get]
func (h *Handler) ByAuthor(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.ByAuthor")
	list, err := h.service.ByAuthor(r.Context(), chi.URLParam(r, "email"))
	h.writeList(w, r, log, list, err)
}

// ByPremium godoc
// @Summary Статьи по признаку премиум
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param flag path bool true "true или false"
// @Success 200 {array} models.Article
// @Failure 400 {object} response.ErrorResponse
// @Router /articles/premium/{flag} [get]
func (h *Handler) ByPremium(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.ByPremium")

	flag, err := strconv.ParseBool(chi.URLParam(r, "flag"))
	if err != nil {
		badRequest(w, r, log, "invalid premium flag")
		return
	}
	list, err := h.service.ByPremium(r.Context(), flag)
	h.writeList(w, r, log, list, err)
}

// Filter godoc
// @Summary Фильтр одобренных статей
// @Description Все параметры необязательны. tags через запятую, совпадение по любому.
// @Description from и to в формате RFC3339 или YYYY-MM-DD (to включает весь день).
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param publisher query string false "Издатель"
// @Param tags query string false "Теги через запятую"
// @Param title query string false "Часть заголовка"
// @Param from query string false "Начало периода"
// @Param to query string false "Конец периода"
// @Success 200 {array} models.Article
// @Failure 400 {object} response.ErrorResponse
// @Router /articles/filter [get]
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.Filter")
	q := r.URL.Query()

	f := articleservice.Filter{
		Publisher: strings.TrimSpace(q.Get("publisher")),
		Title:     strings.TrimSpace(q.Get("title")),
		Tags:      splitTags(q.Get("tags")),
	}
	var err error
	if f.From, err = parseBound(q.Get("from"), false); err != nil {
		badRequest(w, r, log, "invalid from")
		return
	}
	if f.To, err = parseBound(q.Get("to"), true); err != nil {
		badRequest(w, r, log, "invalid to")
		return
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		badRequest(w, r, log, "from is after to")
		return
	}

	list, err := h.service.Filter(r.Context(), f)
	h.writeList(w, r, log, list, err)
}

// Trending godoc
// @Summary Популярные статьи
// @Description До шести одобренных статей по убыванию просмотров.
// @Tags Articles
// @Produce  json
// @Success 200 {array} models.Article
// @Router /trending-articles [get]
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.Trending")
	list, err := h.service.Trending(r.Context())
	h.writeList(w, r, log, list, err)
}

// SetStatus godoc
// @Summary Сменить статус модерации
// @Tags Articles
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID статьи"
// @Param request body StatusRequest true "Статус"
// @Success 200 {object} storage.UpdateResult
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /articles/{id}/status [patch]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.SetStatus")

	var req StatusRequest
	if !response.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}
	res, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), models.ArticleStatus(req.Status))
	h.writeUpdate(w, r, log, res, err)
}

// Decline godoc
// @Summary Отклонить статью
// @Description Пустая причина не сохраняется.
// @Tags Articles
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID статьи"
// @Param request body DeclineRequest false "Причина"
// @Success 200 {object} storage.UpdateResult
// @Failure 404 {object} response.ErrorResponse
// @Router /articles/{id}/declinedStatus [patch]
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.Decline")

	var req DeclineRequest
	if r.ContentLength != 0 {
		if !response.DecodeJSON(w, r, log, nil, &req) {
			return
		}
	}
	res, err := h.service.Decline(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.Reason))
	h.writeUpdate(w, r, log, res, err)
}

// SetPremium godoc
// @Summary Пометить статью как премиум
// @Tags Articles
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID статьи"
// @Param request body PremiumRequest true "Признак"
// @Success 200 {object} storage.UpdateResult
// @Failure 404 {object} response.ErrorResponse
// @Router /articles/{id}/premium [patch]
func (h *Handler) SetPremium(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.SetPremium")

	var req PremiumRequest
	if !response.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}
	res, err := h.service.SetPremium(r.Context(), chi.URLParam(r, "id"), *req.IsPremium)
	h.writeUpdate(w, r, log, res, err)
}

// View godoc
// @Summary Учесть просмотр
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID статьи"
// @Success 200 {object} storage.UpdateResult
// @Failure 404 {object} response.ErrorResponse
// @Router /articles/{id}/view [patch]
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.View")
	res, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	h.writeUpdate(w, r, log, res, err)
}

// Update godoc
// @Summary Редактировать статью
// @Description Доступно автору статьи и администратору.
// @Tags Articles
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID статьи"
// @Param request body UpdateRequest true "Новые значения"
// @Success 200 {object} storage.UpdateResult
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /articles/{id}/update [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.Update")

	email, ok := middlewarectx.EmailFromContext(r.Context())
	if !ok {
		unauthorized(w, r, log)
		return
	}

	var req UpdateRequest
	if !response.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}
	res, err := h.service.Edit(r.Context(), email, chi.URLParam(r, "id"), models.ArticleEdit{
		Title:       req.Title,
		Description: req.Description,
		Publisher:   req.Publisher,
		Tags:        req.Tags,
		Image:       req.Image,
	})
	h.writeUpdate(w, r, log, res, err)
}

// Delete godoc
// @Summary Удалить статью
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID статьи"
// @Success 200 {object} storage.DeleteResult
// @Failure 404 {object} response.ErrorResponse
// @Router /articles/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.articles.Delete")

	res, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, "failed to delete article", err)
		return
	}
	render.JSON(w, r, res)
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, log *slog.Logger, list []models.Article, err error) {
	if err != nil {
		response.Fail(w, r, log, "failed to find articles", err)
		return
	}
	if list == nil {
		list = []models.Article{}
	}
	render.JSON(w, r, list)
}

func (h *Handler) writeUpdate(w http.ResponseWriter, r *http.Request, log *slog.Logger, res storage.UpdateResult, err error) {
	if err != nil {
		response.Fail(w, r, log, "failed to update article", err)
		return
	}
	render.JSON(w, r, res)
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseBound разбирает границу периода. Дата без времени в качестве верхней
// границы покрывает весь день.
func parseBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, errors.New("expected RFC3339 or YYYY-MM-DD")
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
