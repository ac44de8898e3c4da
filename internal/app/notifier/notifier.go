// Package notifier собирает сервис уведомлений: читает события из RabbitMQ
// и отправляет письма через SMTP.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/storyflow/internal/config"
	"github.com/magabrotheeeer/storyflow/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/lib/smtp"
	"github.com/magabrotheeeer/storyflow/internal/services/notification"
)

// App представляет приложение уведомлений.
type App struct {
	conn         *amqp.Connection
	ch           *amqp.Channel
	queue        string
	notification *notification.Service
	logger       *slog.Logger
}

// New подключается к брокеру и объявляет обменник и очередь событий.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.notifier.New"

	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq.url is required", op)
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.EventQueues(cfg.RabbitMQ.Queue))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:         conn,
		ch:           ch,
		queue:        cfg.RabbitMQ.Queue,
		notification: notification.NewService(transport, logger),
		logger:       logger,
	}, nil
}

// Run читает очередь до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, a.queue, a.notification.Handle)
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", a.queue), sl.Err(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("notifier shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
