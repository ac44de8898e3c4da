// Package middlewarectx содержит HTTP middleware проверки доступа.
//
// Проверка идёт в два шага: JWTMiddleware проверяет токен и кладёт email
// в контекст, не обращаясь к хранилищу; AdminMiddleware и OwnerOrAdmin
// затем сверяют роль пользователя по записи в хранилище.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storyflow/internal/http/response"
	"github.com/magabrotheeeer/storyflow/internal/lib/jwt"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// Email — ключ для email пользователя в контексте
	Email Key = "email"
	// Name — ключ для имени пользователя в контексте
	Name Key = "name"
)

// TokenParser проверяет подпись и срок действия токена.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// AdminChecker сообщает, является ли пользователь администратором.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// EmailFromContext возвращает email, положенный JWTMiddleware.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(Email).(string)
	return email, ok && email != ""
}

// NameFromContext возвращает имя пользователя из токена, если оно было.
func NameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(Name).(string)
	return name
}

// WithIdentity кладёт данные пользователя в контекст.
func WithIdentity(ctx context.Context, email, name string) context.Context {
	ctx = context.WithValue(ctx, Email, email)
	return context.WithValue(ctx, Name, name)
}

// JWTMiddleware проверяет заголовок Authorization вида "<scheme> <token>".
// При отсутствии, неверном формате или невалидном токене отвечает 401.
func JWTMiddleware(log *slog.Logger, parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				log.Info("missing or invalid authorization header")
				unauthorized(w, r, "missing or invalid authorization header")
				return
			}

			claims, err := parser.ParseToken(token)
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				unauthorized(w, r, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Email, claims.Name)))
		})
	}
}

// AdminMiddleware пропускает только администраторов. Неизвестный пользователь
// и пользователь без роли получают 403. Ставится после JWTMiddleware.
func AdminMiddleware(log *slog.Logger, checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AdminMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			email, ok := EmailFromContext(r.Context())
			if !ok {
				log.Error("email not found in context")
				unauthorized(w, r, "unauthorized")
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), email)
			if err != nil {
				log.Error("failed to check role", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error(err.Error()))
				return
			}
			if !isAdmin {
				log.Info("forbidden: admin role required", slog.String("email", email))
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerOrAdmin пропускает запрос, если email из URL-параметра param совпадает
// с email из токена, иначе требует роль администратора.
func OwnerOrAdmin(log *slog.Logger, checker AdminChecker, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.OwnerOrAdmin"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			email, ok := EmailFromContext(r.Context())
			if !ok {
				log.Error("email not found in context")
				unauthorized(w, r, "unauthorized")
				return
			}
			if chi.URLParam(r, param) == email {
				next.ServeHTTP(w, r)
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), email)
			if err != nil {
				log.Error("failed to check role", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error(err.Error()))
				return
			}
			if !isAdmin {
				log.Info("forbidden: email mismatch", slog.String("email", email))
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(msg))
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, response.Error("forbidden"))
}
