// Package models содержит доменные сущности storyflow: пользователей,
// издателей, статьи и события, которыми обмениваются сервисы.
// Структуры не зависят от конкретного хранилища.
package models

import "time"

// Role роль пользователя. Пустое значение трактуется как RoleNone.
type Role string

const (
	// RoleNone обычный пользователь без привилегий.
	RoleNone Role = "none"
	// RoleAdmin администратор.
	RoleAdmin Role = "admin"
)

// ParseRole приводит строку из хранилища к Role.
// Всё, что не является известной ролью, становится RoleNone.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	case RoleNone:
		return RoleNone
	default:
		return RoleNone
	}
}

// IsAdmin сообщает, даёт ли роль права администратора.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleNone:
		return false
	default:
		return false
	}
}

// User представляет пользователя платформы.
type User struct {
	ID           string     `json:"_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	PhotoURL     string     `json:"photoURL,omitempty"`
	Role         Role       `json:"role"`
	PremiumTaken *time.Time `json:"premiumTaken"` // начало премиум-доступа, nil если его нет
}
