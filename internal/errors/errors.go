// errors стандартизирует ответы об ошибках HTTP-слоя auth-сервиса.
// На вход он принимает доменную ошибку сервисного слоя, а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Политика против перечисления учётных записей: все отказы логин-гейтов
// (нет пользователя / неверный пароль / не одобрен / заблокирован)
// сводятся к единому ответу 400 invalid_credentials; на обновлении и выходе
// любой токенный отказ — к единому 401 unauthenticated. Причина остаётся
// только в логах сервисного слоя.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bookingapp/auth-service/internal/service"
)

// StatusClientClosedRequest — нестандартный код для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат ошибки для клиента.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - гейты входа — 400/invalid_credentials без различения причины;
//   - токенные ошибки — 401/unauthenticated;
//   - конфликт email — 409/already_exists;
//   - ошибки валидации — 400/invalid_argument;
//   - прочее (включая недоступность хранилища) — 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	switch {
	case err == nil:
		return respond(http.StatusInternalServerError, "internal", "internal error")

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountNotApproved),
		errors.Is(err, service.ErrAccountBlocked):
		return respond(http.StatusBadRequest, "invalid_credentials", "invalid credentials")

	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked):
		return respond(http.StatusUnauthorized, "unauthenticated", "unauthenticated")

	case errors.Is(err, service.ErrEmailTaken):
		return respond(http.StatusConflict, "already_exists", "already exists")

	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword):
		return respond(http.StatusBadRequest, "invalid_argument", "invalid argument")

	case errors.Is(err, context.Canceled):
		return respond(StatusClientClosedRequest, "canceled", "canceled")

	case errors.Is(err, context.DeadlineExceeded):
		return respond(http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded")

	default:
		return respond(http.StatusInternalServerError, "internal", "internal error")
	}
}

// ErrInvalidArgument — локальная ошибка разбора запроса (битый JSON и т.п.).
var ErrInvalidArgument = errors.New("invalid argument")

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		resp   ErrorResponse
	)

	if errors.Is(err, ErrInvalidArgument) {
		status, resp = respond(http.StatusBadRequest, "invalid_argument", "invalid argument")
	} else {
		status, resp = ToHTTP(err)
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func respond(status int, code, msg string) (int, ErrorResponse) {
	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}
