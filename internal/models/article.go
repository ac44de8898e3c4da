package models

import (
	"fmt"
	"time"
)

// ArticleStatus статус модерации статьи.
type ArticleStatus string

const (
	StatusPending  ArticleStatus = "pending"
	StatusApproved ArticleStatus = "approved"
	StatusDeclined ArticleStatus = "declined"
)

// ParseArticleStatus проверяет строку и возвращает статус.
func ParseArticleStatus(s string) (ArticleStatus, error) {
	switch ArticleStatus(s) {
	case StatusPending, StatusApproved, StatusDeclined:
		return ArticleStatus(s), nil
	default:
		return "", fmt.Errorf("unknown article status %q", s)
	}
}

// Article статья, отправленная пользователем.
// DeclinedReason заполнен только при Status == StatusDeclined.
type Article struct {
	ID             string        `json:"_id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Publisher      string        `json:"publisher"`
	Tags           []string      `json:"tags"`
	Image          string        `json:"image"`
	AuthorEmail    string        `json:"authorEmail"`
	AuthorName     string        `json:"authorName,omitempty"`
	AuthorPhoto    string        `json:"authorPhoto,omitempty"`
	PostedDate     time.Time     `json:"postedDate"`
	UpdatedAt      *time.Time    `json:"updatedAt,omitempty"`
	Status         ArticleStatus `json:"status"`
	DeclinedReason string        `json:"declinedReason,omitempty"`
	IsPremium      bool          `json:"isPremium"`
	Views          int64         `json:"views"`
}

// ArticleEdit набор полей, которые автор или администратор
// заменяет целиком при редактировании статьи.
type ArticleEdit struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Publisher   string   `json:"publisher"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image"`
}
