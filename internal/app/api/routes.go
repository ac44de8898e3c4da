// Package api собирает HTTP-приложение storyflow: хранилище, сервисы и маршруты.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/storyflow/internal/http/handlers/articles"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/auth"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/entitlement"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/health"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/payment"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/publishers"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/users"
	"github.com/magabrotheeeer/storyflow/internal/http/middlewarectx"
	"github.com/magabrotheeeer/storyflow/internal/metrics"
)

// Handlers обработчики всех ресурсов.
type Handlers struct {
	Health      *health.Handler
	Auth        *auth.Handler
	Users       *users.Handler
	Publishers  *publishers.Handler
	Articles    *articles.Handler
	Entitlement *entitlement.Handler
	Payment     *payment.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
//
// middleware.URLFormat не подключается: он отрезал бы ".io" и подобные
// окончания у email в пути.
func RegisterRoutes(r chi.Router, logger *slog.Logger, h Handlers, tokens middlewarectx.TokenParser,
	admins middlewarectx.AdminChecker, m *metrics.Metrics, metricsHandler http.Handler) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		m.Middleware,
	)

	// Открытые конечные точки
	r.Get("/", h.Health.Root)
	r.Get("/health", h.Health.Health)
	r.Post("/users", h.Users.Create)
	r.Post("/jwt", h.Auth.IssueToken)
	r.Get("/trending-articles", h.Articles.Trending)

	owner := middlewarectx.OwnerOrAdmin(logger, admins, "email")

	// Группа с JWT аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(logger, tokens))

		r.Post("/login", h.Auth.Login)
		r.Post("/create-payment-intent", h.Payment.CreateIntent)
		r.Get("/publishers", h.Publishers.List)

		r.With(owner).Get("/can-add-article/{email}", h.Entitlement.CanAddArticle)
		r.With(owner).Get("/users/admin/{email}", h.Users.AdminStatus)
		r.With(owner).Get("/articles/user/{email}", h.Articles.ByAuthor)

		r.Post("/articles", h.Articles.Create)
		r.Get("/articles/filter", h.Articles.Filter)
		r.Get("/articles/publisher/{publisher}", h.Articles.ByPublisher)
		r.Get("/articles/search/{title}", h.Articles.Search)
		r.Get("/articles/premium/{flag}", h.Articles.ByPremium)
		r.Get("/articles/{id}", h.Articles.Get)
		r.Patch("/articles/{id}/view", h.Articles.View)
		r.Patch("/articles/{id}/update", h.Articles.Update)

		// Только администраторы
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AdminMiddleware(logger, admins))

			r.Get("/users", h.Users.List)
			r.Get("/users/{id}", h.Users.Get)
			r.Patch("/users/admin/{id}", h.Users.Promote)
			r.Put("/users/{email}/premium", h.Users.MarkPremium)
			r.Delete("/users/{email}/premium", h.Users.ClearPremium)
			r.Delete("/users/{id}", h.Users.Delete)

			r.Post("/publishers", h.Publishers.Create)

			r.Get("/articles", h.Articles.List)
			r.Get("/articles/status/{status}", h.Articles.ByStatus)
			r.Patch("/articles/{id}/status", h.Articles.SetStatus)
			r.Patch("/articles/{id}/premium", h.Articles.SetPremium)
			r.Patch("/articles/{id}/declinedStatus", h.Articles.Decline)
			r.Delete("/articles/{id}", h.Articles.Delete)
		})
	})

	r.Handle("/metrics", metricsHandler)
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
