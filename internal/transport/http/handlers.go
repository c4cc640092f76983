// transport/http содержит HTTP-эндпоинты auth-сервиса.
// Здесь выполняется только разбор запросов и маппинг данных и ошибок
// доменного слоя (service) в HTTP. Вся валидация и бизнес-логика — в service.
//
// Принципы:
//   - Контекст запроса прокидывается в сервис без потерь;
//   - Ошибки сервиса транслируются в статусы через internal/errors:
//   - любые отказы логин-гейтов -> 400 с единым кодом invalid_credentials
//     (клиент не может перечислять учётные записи);
//   - токенные отказы (refresh/logout) -> 401;
//   - ErrEmailTaken -> 409; ошибки валидации -> 400;
//   - прочие ошибки -> 500 с единым безопасным сообщением.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bookingapp/auth-service/internal/service"
)

// Handlers агрегирует зависимости эндпоинтов.
type Handlers struct {
	svc *service.Service
}

func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// errorsIsAny — errors.Is хотя бы по одной из целей.
func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}

	return false
}
