// Package auth реализует выпуск токена и вход пользователя.
//
// POST /jwt выдаёт подписанный токен на час по переданному email. POST /login
// вызывается уже с токеном: он возвращает запись пользователя, предварительно
// сбросив истёкший премиум-доступ.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storyflow/internal/http/middlewarectx"
	"github.com/magabrotheeeer/storyflow/internal/http/response"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/models"
)

// TokenRequest входные данные для выпуска токена.
type TokenRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// TokenResponse выпущенный токен.
type TokenResponse struct {
	Token string `json:"token"`
}

// TokenIssuer выпускает JWT.
type TokenIssuer interface {
	GenerateToken(email, name string) (string, error)
}

// Service описывает вход пользователя.
type Service interface {
	Login(ctx context.Context, email string) (*models.User, error)
}

// Handler обрабатывает запросы аутентификации.
type Handler struct {
	log      *slog.Logger
	issuer   TokenIssuer
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, issuer TokenIssuer, service Service) *Handler {
	return &Handler{
		log:      log,
		issuer:   issuer,
		service:  service,
		validate: validator.New(),
	}
}

// IssueToken godoc
// @Summary Выпуск токена
// @Description Возвращает JWT, действующий один час.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body TokenRequest true "Данные пользователя"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /jwt [post]
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.IssueToken"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req TokenRequest
	if !response.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	token, err := h.issuer.GenerateToken(req.Email, req.Name)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("token issued", slog.String("email", req.Email))
	render.JSON(w, r, TokenResponse{Token: token})
}

// Login godoc
// @Summary Вход пользователя
// @Description Возвращает запись пользователя; истёкший премиум-доступ при этом очищается.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email, ok := middlewarectx.EmailFromContext(r.Context())
	if !ok {
		log.Error("email not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	user, err := h.service.Login(r.Context(), email)
	if err != nil {
		response.Fail(w, r, log, "failed to login", err)
		return
	}
	render.JSON(w, r, user)
}
