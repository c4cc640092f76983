package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/bookingapp/auth-service/internal/models"
	"github.com/bookingapp/auth-service/internal/pkg/log"
	"github.com/bookingapp/auth-service/internal/pkg/redact"
	"github.com/bookingapp/auth-service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput — данные регистрации нового пользователя.
type RegisterInput struct {
	Email    string
	UserName string
	Password string
}

// Login выполняет вход по email+пароль через четыре гейта:
// существование пользователя, пароль, одобрение, блокировка.
// Каждый отказ различим внутри (лог), но наружу уходит типизированная ошибка,
// которую транспорт сводит к единому недифференцированному отказу.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("login_user_not_found",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		lg.Warn("login_wrong_password",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.Approved {
		lg.Warn("login_not_approved",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrAccountNotApproved)
	}

	if user.Blocked {
		lg.Warn("login_blocked",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrAccountBlocked)
	}

	// Политика single_session: новая сессия вытесняет все прежние.
	if s.cfg.SingleSession {
		if err := s.revokeAllForUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return s.issueTokenPair(ctx, user, "")
}

// Register регистрирует нового пользователя.
// Токены не выпускаются: до первого входа учётной записи может требоваться
// одобрение администратора (см. гейт Approved в Login).
func (s *Service) Register(ctx context.Context, in RegisterInput) (uuid.UUID, error) {
	const op = "service.auth.Register"

	normEmail, err := validateEmail(in.Email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(in.Password); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		UserName:     strings.TrimSpace(in.UserName),
		PasswordHash: hashedPassword,
		Approved:     s.cfg.AutoApprove,
		Blocked:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.AddUserRole(ctx, user.ID, models.RoleUser); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.ID, nil
}

// Logout отзывает все refresh-токены пользователя, извлечённого из principal.
// Идемпотентна: отсутствие активных токенов не ошибка.
func (s *Service) Logout(ctx context.Context, principal models.Claims) error {
	const op = "service.auth.Logout"

	if err := s.revokeAllForUser(ctx, principal.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Refresh обменивает пару (просроченный access, живой refresh) на новую пару.
// Ротация атомарна: из конкурентных обменов одного refresh-токена выигрывает
// ровно один, предъявленное значение становится навсегда неиспользуемым.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	// Подпись access-токена обязана сходиться; истечение игнорируется.
	principal, err := s.validateAccessToken(accessToken, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.validateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Refresh-токен должен принадлежать тому же пользователю, что и access.
	if token.UserID != principal.UserID {
		log.From(ctx).Warn("refresh_owner_mismatch",
			slog.String("op", op),
			slog.String("user_id", token.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	// Claims пересобираются из актуальной записи: смена ролей/флагов
	// с момента входа вступает в силу при первом же обновлении.
	user, err := s.storage.UserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Blocked {
		return nil, fmt.Errorf("%s: %w", op, ErrAccountBlocked)
	}

	return s.issueTokenPair(ctx, user, token.RefreshTokenHash)
}

// Forget инициирует сброс пароля. Всегда завершается успехом независимо от
// того, зарегистрирован ли email: иначе ответ раскрывал бы базу адресов.
func (s *Service) Forget(ctx context.Context, email string) error {
	const op = "service.auth.Forget"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			lg.Error("forget_lookup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}

		return nil
	}

	// Доставка асинхронная и на отвязанном контексте: ответ клиенту не должен
	// отличаться по времени и форме от случая неизвестного email.
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := s.notifier.SendPasswordResetMail(nctx, user); err != nil {
			lg.Error("password_reset_send_failed",
				slog.String("op", op),
				slog.String("user_id", user.ID.String()),
				slog.String("err", err.Error()),
			)
		}
	}()

	return nil
}

// revokeAllForUser отзывает все активные refresh-токены пользователя
// и помечает их отозванными в кэше.
func (s *Service) revokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	hashes, err := s.storage.RevokeAllByUserID(ctx, userID)
	if err != nil {
		return err
	}

	for _, h := range hashes {
		s.cacheMarkRevoked(ctx, h)
	}

	log.From(ctx).Info("sessions_revoked",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(hashes)),
	)

	return nil
}

// issueTokenPair выпускает новую пару access+refresh токенов.
// Если oldRefreshHash != "", сначала атомарно отзывает старый refresh-токен;
// проигравший конкурентную ротацию получает ErrInvalidToken/ErrTokenRevoked.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User, oldRefreshHash string) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, buildClaims(user), now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if oldRefreshHash != "" {
		revoked, err := s.storage.RevokeRefreshTokenIfActive(ctx, oldRefreshHash)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if !revoked {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}

		s.cacheMarkRevoked(ctx, oldRefreshHash)
	}

	plain, err := s.generateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: plain,
		ExpireOn:     now.Add(s.cfg.AccessTokenTTL),
	}, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
