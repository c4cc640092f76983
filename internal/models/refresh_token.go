package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken - данные refresh-токена для управления сессиями.
// В БД хранится только хэш секрета; plain-значение известно лишь клиенту.
type RefreshToken struct {
	RefreshTokenHash string
	UserID           uuid.UUID
	CreatedAt        time.Time
	ExpiresAt        time.Time
	Revoked          bool
}
