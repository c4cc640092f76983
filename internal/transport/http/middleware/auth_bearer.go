package middleware

import (
	"context"
	"net/http"
	"strings"
)

type bearerKey struct{}

// AuthBearer извлекает Bearer-токен из Authorization и кладёт "сырой" токен
// в контекст; валидацию выполняет сервисный слой.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if auth != "" {
				const prefix = "Bearer "
				if strings.HasPrefix(auth, prefix) && len(auth) > len(prefix) {
					token := strings.TrimSpace(auth[len(prefix):])

					if token != "" {
						ctx := context.WithValue(r.Context(), bearerKey{}, token)
						r = r.WithContext(ctx)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerFrom возвращает токен, положенный AuthBearer, и признак его наличия.
func BearerFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(bearerKey{}).(string)
	return v, ok && v != ""
}
