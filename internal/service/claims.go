package service

import (
	"sort"

	"github.com/bookingapp/auth-service/internal/models"
)

// buildClaims выводит набор claims из снапшота пользователя.
// Чистая функция: без побочных эффектов и внешних вызовов; один и тот же
// снапшот всегда даёт один и тот же набор (роли нормализуются сортировкой).
func buildClaims(user *models.User) models.Claims {
	roles := make([]string, len(user.Roles))
	copy(roles, user.Roles)
	sort.Strings(roles)

	return models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  roles,
	}
}
