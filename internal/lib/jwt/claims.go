// Package jwt реализует выпуск и проверку JWT токенов storyflow.
//
// Токен подписывается HS256, несёт email (и необязательное имя) пользователя
// и живёт ограниченное время, по умолчанию один час. Обновления токена нет:
// после истечения клиент запрашивает новый.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL время жизни токена по умолчанию.
const DefaultTTL = time.Hour

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	Email                string `json:"email"`
	Name                 string `json:"name,omitempty"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt и пр.
}

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(email, name string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker с использованием секретного ключа и TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт новый экземпляр MakerImpl. Нулевой ttl заменяется на DefaultTTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
