package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleUser — роль по умолчанию, назначается каждому новому пользователю при регистрации.
const RoleUser = "user"

// User - модель пользователя в системе.
//
// Approved и Blocked меняются только административными операциями вне
// auth-сервиса; здесь они читаются как входные данные логин-гейтов.
type User struct {
	ID           uuid.UUID
	Email        string
	UserName     string
	PasswordHash string
	Approved     bool
	Blocked      bool
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
