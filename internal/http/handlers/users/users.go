// Package users реализует HTTP-обработчики для работы с пользователями.
package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storyflow/internal/http/response"
	"github.com/magabrotheeeer/storyflow/internal/models"
	userservice "github.com/magabrotheeeer/storyflow/internal/services/users"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

// CreateRequest данные пользователя при первом входе.
type CreateRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

// AdminResponse ответ на проверку роли.
type AdminResponse struct {
	Admin bool `json:"admin"`
}

// Service описывает бизнес-логику пользователей.
type Service interface {
	Create(ctx context.Context, user models.User) (userservice.CreateResult, error)
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	IsAdmin(ctx context.Context, email string) (bool, error)
	Promote(ctx context.Context, id string) (storage.UpdateResult, error)
	MarkPremium(ctx context.Context, email string) (storage.UpdateResult, error)
	ClearPremium(ctx context.Context, email string) (storage.UpdateResult, error)
	Delete(ctx context.Context, id string) (storage.DeleteResult, error)
}

// Handler обрабатывает запросы к /users.
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

// Create godoc
// @Summary Регистрация пользователя
// @Description Добавляет пользователя, если email ещё не встречался. Повторный вызов
// @Description возвращает {"message":"User already exists","insertedId":null}.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body CreateRequest true "Пользователь"
// @Success 200 {object} userservice.CreateResult
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Create")

	var req CreateRequest
	if !response.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	res, err := h.service.Create(r.Context(), models.User{
		Email:    req.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		response.Fail(w, r, log, "failed to create user", err)
		return
	}
	render.JSON(w, r, res)
}

// List godoc
// @Summary Все пользователи
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.List")

	users, err := h.service.List(r.Context())
	if err != nil {
		response.Fail(w, r, log, "failed to list users", err)
		return
	}
	render.JSON(w, r, users)
}

// Get godoc
// @Summary Пользователь по идентификатору
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} models.User
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Get")

	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, "failed to get user", err)
		return
	}
	render.JSON(w, r, user)
}

// AdminStatus godoc
// @Summary Является ли пользователь администратором
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param email path string true "Email"
// @Success 200 {object} AdminResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /users/admin/{email} [get]
func (h *Handler) AdminStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.AdminStatus")

	isAdmin, err := h.service.IsAdmin(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		response.Fail(w, r, log, "failed to check role", err)
		return
	}
	render.JSON(w, r, AdminResponse{Admin: isAdmin})
}

// Promote godoc
// @Summary Назначить администратором
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} storage.UpdateResult
// @Failure 404 {object} response.ErrorResponse
// @Router /users/admin/{id} [patch]
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Promote")
	id := chi.URLParam(r, "id")

	res, err := h.service.Promote(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, "failed to promote user", err)
		return
	}
	log.Info("user promoted to admin", slog.String("id", id))
	render.JSON(w, r, res)
}

// MarkPremium godoc
// @Summary Отметить начало премиум-доступа
// @Description Время начала берётся с сервера.
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param email path string true "Email"
// @Success 200 {object} storage.UpdateResult
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{email}/premium [put]
func (h *Handler) MarkPremium(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.MarkPremium")

	res, err := h.service.MarkPremium(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		response.Fail(w, r, log, "failed to mark premium", err)
		return
	}
	render.JSON(w, r, res)
}

// ClearPremium godoc
// @Summary Снять премиум-доступ
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param email path string true "Email"
// @Success 200 {object} storage.UpdateResult
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{email}/premium [delete]
func (h *Handler) ClearPremium(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.ClearPremium")

	res, err := h.service.ClearPremium(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		response.Fail(w, r, log, "failed to clear premium", err)
		return
	}
	render.JSON(w, r, res)
}

// Delete godoc
// @Summary Удалить пользователя
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Success 200 {object} storage.DeleteResult
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Delete")

	res, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, "failed to delete user", err)
		return
	}
	render.JSON(w, r, res)
}
