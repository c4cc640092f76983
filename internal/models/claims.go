package models

import "github.com/google/uuid"

// Claims — набор авторизационных фактов, выводимый из снапшота User
// на момент выпуска access-токена. Никогда не персистится — пересобирается
// при каждом выпуске.
type Claims struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}
