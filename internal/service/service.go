// service содержит бизнес-логику auth-сервиса:
// логин-гейты, регистрацию, выпуск/проверку/ротацию токенов, отзыв сессий
// и инициацию сброса пароля; работа с хранилищем идёт через интерфейсы
// из пакета storage, с уведомлениями — через notify.Notifier.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Ошибки возвращаются типизированными и далее маппятся
//     транспортом на HTTP-статусы (см. комментарии к переменным ошибок ниже).
//   - Причина отказа каждого логин-гейта различима в логах, но клиенту
//     транспорт отдаёт единый недифференцированный отказ.
package service

import (
	"errors"

	"github.com/bookingapp/auth-service/internal/cache"
	"github.com/bookingapp/auth-service/internal/config"
	"github.com/bookingapp/auth-service/internal/notify"
	"github.com/bookingapp/auth-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// На уровне транспорта маппится в общий отказ входа (HTTP 400).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountNotApproved — учётная запись ещё не одобрена администратором.
	// Транспорт: общий отказ входа (HTTP 400), причина остаётся в логах.
	ErrAccountNotApproved = errors.New("account not approved")

	// ErrAccountBlocked — учётная запись заблокирована.
	// Транспорт: общий отказ входа (HTTP 400), причина остаётся в логах.
	ErrAccountBlocked = errors.New("account blocked")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи,
	// отсутствует в хранилище или принадлежит другому пользователю.
	// Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/rotation/compromise) и недействителен
	// независимо от срока. Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrEmailTaken — e-mail уже занят другим пользователем. Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный refresh-токен
	// (редкий случай коллизий при сохранении хэша в БД после нескольких ретраев).
	// Транспорт: HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	storage  storage.Storage
	notifier notify.Notifier
	cfg      config.AuthConfig
	rcache   cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, notifier notify.Notifier, cfg config.AuthConfig) *Service {
	return &Service{
		storage:  storage,
		notifier: notifier,
		cfg:      cfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
