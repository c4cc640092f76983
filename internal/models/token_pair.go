package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и при обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — случайный секрет, который клиент хранит и предъявляет
//     для выпуска новой пары токенов; на сервере хранится только его хэш;
//   - ExpireOn — момент истечения access-токена (UTC), не refresh-токена.
type TokenPair struct {
	// AccessToken — JWT для авторизации запросов.
	AccessToken string
	// RefreshToken — случайный секрет для обновления пары.
	RefreshToken string
	// ExpireOn — время истечения действия access-токена (UTC).
	ExpireOn time.Time
}
