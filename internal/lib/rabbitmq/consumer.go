package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
)

// ErrUnprocessable оборачивается обработчиком, если сообщение не удастся
// обработать и при повторной доставке. Такое сообщение отбрасывается.
var ErrUnprocessable = errors.New("unprocessable message")

// requeueDelay пауза перед возвратом сообщения в очередь при временной ошибке.
var requeueDelay = time.Second

// ConsumerMessage запускает потребителя очереди. Успешно обработанные сообщения
// подтверждаются, остальные возвращаются в очередь после паузы requeueDelay.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	delay := requeueDelay
	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(delivery amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(delivery.Body); err != nil {
						requeue := !errors.Is(err, ErrUnprocessable)
						log.Warn("message handling failed",
							slog.String("queue", queueName),
							slog.Bool("requeue", requeue),
							sl.Err(err))
						if requeue {
							sleepCtx(ctx, delay)
						}
						if nackErr := delivery.Nack(false, requeue); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := delivery.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
