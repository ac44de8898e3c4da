// Package scheduler собирает приложение фоновой очистки истёкших премиум-доступов.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/storyflow/internal/config"
	"github.com/magabrotheeeer/storyflow/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/lock"
	"github.com/magabrotheeeer/storyflow/internal/services/entitlement"
	schedulerservice "github.com/magabrotheeeer/storyflow/internal/services/scheduler"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/open"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	db               storage.Store
	locker           *lock.Locker
	conn             *amqp.Connection
	events           *rabbitmq.Publisher
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика. Redis и RabbitMQ
// необязательны: без Redis очистка идёт без блокировки, без RabbitMQ
// события premium.expired не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	db, err := open.Store(ctx, cfg.Storage, false, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a := &App{db: db, logger: logger}

	var locker schedulerservice.Locker
	if cfg.Redis.Addr != "" {
		a.locker, err = lock.InitServer(ctx, cfg.Redis)
		if err != nil {
			a.closeResources(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		locker = a.locker
	} else {
		logger.Warn("redis address is empty, sweeping without lock")
	}

	var events entitlement.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			a.closeResources(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.SetupChannel(a.conn, cfg.RabbitMQ.Exchange, rabbitmq.EventQueues(cfg.RabbitMQ.Queue))
		if err != nil {
			a.closeResources(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.events = rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange)
		events = a.events
	}

	expirer := entitlement.NewService(db, db, events, nil, cfg.Premium.GrantDuration, logger)
	a.schedulerService = schedulerservice.NewSchedulerService(db, expirer, locker,
		cfg.Scheduler.SweepInterval, cfg.Scheduler.LockTTL, logger)
	return a, nil
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
	if a.locker != nil {
		if err := a.locker.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(ctx); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}

// Run запускает планировщик.
func (a *App) Run(ctx context.Context) error {
	a.schedulerService.Run(ctx)

	a.logger.Info("shutting down scheduler service")
	a.closeResources(context.WithoutCancel(ctx))
	return nil
}
