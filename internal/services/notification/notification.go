// Package notification превращает доменные события в письма пользователям.
package notification

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/storyflow/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/lib/smtp"
	"github.com/magabrotheeeer/storyflow/internal/models"
)

// Service отправляет письма по событиям из очереди.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// Handle обрабатывает тело сообщения из очереди. Ошибки, которые не исправит
// повторная доставка, оборачивают rabbitmq.ErrUnprocessable.
func (s *Service) Handle(body []byte) error {
	const op = "services.notification.Handle"

	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal event", sl.Err(err))
		return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrUnprocessable, err)
	}
	if event.Email == "" {
		return fmt.Errorf("%s: %w: event without recipient", op, rabbitmq.ErrUnprocessable)
	}

	subject, text, err := compose(event)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrUnprocessable, err)
	}
	if err := s.sendEmail([]string{event.Email}, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func compose(event models.Event) (subject, text string, err error) {
	switch event.Type {
	case models.EventArticleStatus:
		switch event.Status {
		case models.StatusApproved:
			return "Ваша статья опубликована",
				fmt.Sprintf("Здравствуйте!\n\nСтатья «%s» одобрена модератором и доступна читателям.", event.Title), nil
		case models.StatusDeclined:
			text := fmt.Sprintf("Здравствуйте!\n\nСтатья «%s» отклонена модератором.", event.Title)
			if event.Reason != "" {
				text += "\nПричина: " + event.Reason
			}
			return "Ваша статья отклонена", text, nil
		case models.StatusPending:
			return "Статья возвращена на модерацию",
				fmt.Sprintf("Здравствуйте!\n\nСтатья «%s» снова ожидает проверки.", event.Title), nil
		default:
			return "", "", fmt.Errorf("unknown article status %q", event.Status)
		}
	case models.EventPremiumExpired:
		return "Премиум-доступ закончился",
			"Здравствуйте!\n\nСрок вашего премиум-доступа истёк. Без него можно опубликовать только одну статью.\nЧтобы снова публиковать без ограничений, оформите премиум в личном кабинете.", nil
	default:
		return "", "", fmt.Errorf("unknown event type %q", event.Type)
	}
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ","),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		return err
	}
	if err = wc.Close(); err != nil {
		return err
	}
	if err = client.Quit(); err != nil {
		return err
	}

	s.log.Info("email sent", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
