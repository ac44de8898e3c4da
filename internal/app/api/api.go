package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/storyflow/internal/config"
	grpcserver "github.com/magabrotheeeer/storyflow/internal/grpc/server"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/articles"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/auth"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/entitlement"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/health"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/payment"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/publishers"
	"github.com/magabrotheeeer/storyflow/internal/http/handlers/users"
	"github.com/magabrotheeeer/storyflow/internal/lib/jwt"
	"github.com/magabrotheeeer/storyflow/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/metrics"
	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/paymentprovider"
	articleservice "github.com/magabrotheeeer/storyflow/internal/services/articles"
	entitlementservice "github.com/magabrotheeeer/storyflow/internal/services/entitlement"
	paymentservice "github.com/magabrotheeeer/storyflow/internal/services/payment"
	publisherservice "github.com/magabrotheeeer/storyflow/internal/services/publishers"
	userservice "github.com/magabrotheeeer/storyflow/internal/services/users"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/open"
)

const (
	shutdownTimeout    = 15 * time.Second
	healthPollInterval = 5 * time.Second
)

// eventPublisher общий интерфейс издателя событий для сервисов.
type eventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// App HTTP-приложение storyflow.
type App struct {
	server *http.Server
	health *grpcserver.HealthServer
	cfg    *config.Config
	logger *slog.Logger
	db     storage.Store
	conn   *amqp.Connection
	events *rabbitmq.Publisher
}

// New открывает хранилище, подключает брокер событий (если задан) и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := open.Store(ctx, cfg.Storage, true, logger)
	if err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, logger: logger, db: db}

	var events eventPublisher
	if cfg.RabbitMQ.URL != "" {
		if err := app.connectEvents(); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		events = app.events
	} else {
		logger.Warn("rabbitmq url is empty, events are disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	entitlementService := entitlementservice.NewService(db, db, events, m, cfg.Premium.GrantDuration, logger)
	userService := userservice.NewService(db, entitlementService, logger)
	articleService := articleservice.NewService(db, entitlementService, userService, events, logger)
	publisherService := publisherservice.NewService(db)
	providerClient := paymentprovider.NewClient(cfg.Payment.SecretKey, cfg.Payment.APIURL, cfg.Payment.Timeout)
	paymentService := paymentservice.New(providerClient, cfg.Payment.Currency, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Handlers{
		Health:      health.New(logger, db),
		Auth:        auth.New(logger, jwtMaker, userService),
		Users:       users.New(logger, userService),
		Publishers:  publishers.New(logger, publisherService),
		Articles:    articles.New(logger, articleService),
		Entitlement: entitlement.New(logger, entitlementService),
		Payment:     payment.New(logger, paymentService),
	}, jwtMaker, userService, m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	if cfg.GRPCHealthAddress != "" {
		app.health = grpcserver.NewHealthServer(db, healthPollInterval, logger)
	}
	return app, nil
}

func (a *App) connectEvents() error {
	const op = "app.api.connectEvents"

	conn, err := rabbitmq.Connect(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Retries, a.cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, a.cfg.RabbitMQ.Exchange, rabbitmq.EventQueues(a.cfg.RabbitMQ.Queue))
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	a.conn = conn
	a.events = rabbitmq.NewPublisher(ch, a.cfg.RabbitMQ.Exchange)
	return nil
}

// Run запускает HTTP-сервер (и gRPC health, если настроен) до отмены ctx.
// Порт gRPC занимается до старта HTTP: при ошибке ресурсы закрываются сразу.
func (a *App) Run(ctx context.Context) error {
	const op = "app.api.Run"

	var lis net.Listener
	if a.health != nil {
		var err error
		lis, err = net.Listen("tcp", a.cfg.GRPCHealthAddress)
		if err != nil {
			a.closeResources(ctx)
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	if lis != nil {
		go func() {
			if err := a.health.Serve(ctx, lis); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down HTTP server gracefully")
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = err
	}
	a.closeResources(timeoutCtx)
	return runErr
}

func (a *App) closeResources(ctx context.Context) {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.db.Close(ctx); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
