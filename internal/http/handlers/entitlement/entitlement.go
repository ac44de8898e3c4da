// Package entitlement отвечает на вопрос, может ли пользователь отправить ещё одну статью.
package entitlement

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storyflow/internal/http/response"
)

// CanAddResponse результат проверки.
type CanAddResponse struct {
	Allowed bool `json:"allowed"`
}

// Checker проверяет право на отправку статьи.
type Checker interface {
	CanSubmitArticle(ctx context.Context, email string) (bool, error)
}

// Handler обрабатывает GET /can-add-article/{email}.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// New создает новый Handler.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{log: log, checker: checker}
}

// CanAddArticle godoc
// @Summary Может ли пользователь отправить статью
// @Description true при активном премиум-доступе или если у пользователя ещё нет статей.
// @Tags Articles
// @Produce  json
// @Security BearerAuth
// @Param email path string true "Email"
// @Success 200 {object} CanAddResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /can-add-article/{email} [get]
func (h *Handler) CanAddArticle(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.CanAddArticle"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	allowed, err := h.checker.CanSubmitArticle(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		response.Fail(w, r, log, "failed to check entitlement", err)
		return
	}
	render.JSON(w, r, CanAddResponse{Allowed: allowed})
}
