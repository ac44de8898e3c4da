// Package payment реализует создание платёжного намерения.
package payment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storyflow/internal/http/response"
)

// IntentRequest цена в основных единицах валюты. Положительность цены
// проверяет сервис.
type IntentRequest struct {
	Price float64 `json:"price"`
}

// IntentResponse client secret для подтверждения оплаты на клиенте.
type IntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// Service создаёт платёжное намерение.
type Service interface {
	CreateIntent(ctx context.Context, price float64) (string, error)
}

// Handler обрабатывает POST /create-payment-intent.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// CreateIntent godoc
// @Summary Создать платёжное намерение
// @Description Цена переводится в минимальные единицы (x100, с отбрасыванием дробной части).
// @Tags Payment
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body IntentRequest true "Цена"
// @Success 200 {object} IntentResponse
// @Failure 400 {object} response.ErrorResponse "Некорректная цена"
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Router /create-payment-intent [post]
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.CreateIntent"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req IntentRequest
	if !response.DecodeJSON(w, r, log, nil, &req) {
		return
	}

	secret, err := h.service.CreateIntent(r.Context(), req.Price)
	if err != nil {
		response.Fail(w, r, log, "failed to create payment intent", err)
		return
	}
	render.JSON(w, r, IntentResponse{ClientSecret: secret})
}
