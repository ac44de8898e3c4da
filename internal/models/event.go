package models

import "time"

const (
	// EventArticleStatus смена статуса модерации статьи.
	EventArticleStatus = "article.status"
	// EventPremiumExpired истёк премиум-доступ пользователя.
	EventPremiumExpired = "premium.expired"
)

// Event сообщение для сервиса уведомлений.
type Event struct {
	Type       string        `json:"type"`
	Email      string        `json:"email"`
	ArticleID  string        `json:"articleId,omitempty"`
	Title      string        `json:"title,omitempty"`
	Status     ArticleStatus `json:"status,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}
