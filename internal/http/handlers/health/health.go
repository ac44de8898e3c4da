// Package health отвечает на проверки живости и готовности сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storyflow/internal/http/response"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log   *slog.Logger
	store Pinger
}

func New(log *slog.Logger, store Pinger) *Handler {
	return &Handler{
		log:   log,
		store: store,
	}
}

// Root godoc
// @Summary Проверка живости
// @Tags Health
// @Produce plain
// @Success 200 {string} string
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "storyflow server is running")
}

// Health godoc
// @Summary Проверка готовности
// @Description Проверяет соединение с хранилищем.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} response.ErrorResponse
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health.Health"

	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Error("storage is not reachable",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("storage is not reachable"))
		return
	}
	render.JSON(w, r, map[string]string{"status": response.StatusOK})
}
