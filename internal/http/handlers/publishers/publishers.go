// Package publishers реализует HTTP-обработчики издателей.
package publishers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storyflow/internal/http/response"
	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

// CreateRequest новый издатель.
type CreateRequest struct {
	Name string `json:"name" validate:"required"`
	Logo string `json:"logo"`
}

// Service описывает операции над издателями.
type Service interface {
	Create(ctx context.Context, publisher models.Publisher) (storage.InsertResult, error)
	List(ctx context.Context) ([]models.Publisher, error)
}

// Handler обрабатывает запросы к /publishers.
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

// List godoc
// @Summary Все издатели
// @Tags Publishers
// @Produce  json
// @Security BearerAuth
// @Success 200 {array} models.Publisher
// @Failure 401 {object} response.ErrorResponse
// @Router /publishers [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.publishers.List"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	list, err := h.service.List(r.Context())
	if err != nil {
		response.Fail(w, r, log, "failed to list publishers", err)
		return
	}
	render.JSON(w, r, list)
}

// Create godoc
// @Summary Добавить издателя
// @Tags Publishers
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body CreateRequest true "Издатель"
// @Success 201 {object} storage.InsertResult
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /publishers [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.publishers.Create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CreateRequest
	if !response.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	res, err := h.service.Create(r.Context(), models.Publisher{Name: req.Name, Logo: req.Logo})
	if err != nil {
		response.Fail(w, r, log, "failed to create publisher", err)
		return
	}
	log.Info("publisher created", slog.String("id", res.InsertedID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}
