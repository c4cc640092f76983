package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookingapp/auth-service/internal/cache"
	"github.com/bookingapp/auth-service/internal/models"
	"github.com/bookingapp/auth-service/internal/pkg/log"
	"github.com/bookingapp/auth-service/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type accessClaims struct {
	UserID string   `json:"uid"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// generateAccessToken генерирует access-токен из набора claims.
func (s *Service) generateAccessToken(ctx context.Context, claims models.Claims, now time.Time) (string, error) {
	const op = "service.token.generateAccessToken"

	lg := log.From(ctx)

	ac := accessClaims{
		UserID: claims.UserID.String(),
		Email:  claims.Email,
		Roles:  claims.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   claims.UserID.String(),
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ac)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// validateAccessToken валидирует access-токен и возвращает заключённые в нём claims.
// ignoreExpiry=true используется при обмене refresh-токена: подпись обязана
// сходиться, но сам access-токен в этот момент ожидаемо просрочен.
func (s *Service) validateAccessToken(tokenStr string, ignoreExpiry bool) (models.Claims, error) {
	const op = "service.token.validateAccessToken"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5 * time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
	}
	if ignoreExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		opts...,
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Claims{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	// WithoutClaimsValidation отключает и проверки iss/aud — повторяем их вручную.
	if ignoreExpiry {
		if claims.Issuer != s.cfg.Issuer || !audienceMatch(claims.Audience, s.cfg.Audience) {
			return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return models.Claims{
		UserID: uid,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}, nil
}

// ValidateToken проверяет access-токен (подпись и срок действия)
// и возвращает заключённый в нём principal.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (models.Claims, error) {
	const op = "service.token.ValidateToken"

	claims, err := s.validateAccessToken(accessToken, false)
	if err != nil {
		return models.Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// audienceMatch — истина, если множества аудиторий пересекаются.
func audienceMatch(got jwt.ClaimStrings, want []string) bool {
	for _, g := range got {
		for _, w := range want {
			if g == w {
				return true
			}
		}
	}

	return false
}

// hashRefreshToken — sha256 от plain-значения в base64url; в БД и кэше
// refresh-токен существует только в таком виде.
func hashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// generateRefreshToken создает новый refresh-токен.
func (s *Service) generateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	const (
		op          = "service.token.generateRefreshToken"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			lg.Error("refresh_rand_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", fmt.Errorf("%s: %w", op, err)
		}
		plain := base64.RawURLEncoding.EncodeToString(b)
		hash := hashRefreshToken(plain)

		now := time.Now().UTC()
		token := &models.RefreshToken{
			RefreshTokenHash: hash,
			UserID:           userID,
			CreatedAt:        now,
			ExpiresAt:        now.Add(s.cfg.RefreshTokenTTL),
			Revoked:          false,
		}

		if err := s.storage.SaveRefreshToken(ctx, token); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем сгенерировать заново.
				continue
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", fmt.Errorf("%s: %w", op, err)
		}

		s.cacheSet(ctx, hash, token)

		return plain, nil
	}

	lg.Error("refresh_collision_exceeded",
		slog.String("op", op),
	)

	return "", fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// validateRefreshToken валидирует refresh-токен: он должен существовать,
// быть неотозванным и непросроченным.
func (s *Service) validateRefreshToken(ctx context.Context, plain string) (*models.RefreshToken, error) {
	const op = "service.token.validateRefreshToken"

	lg := log.From(ctx)
	hash := hashRefreshToken(plain)

	// Быстрый отрицательный путь через кэш; источник истины — БД.
	if s.rcache != nil {
		if e, ok, err := s.rcache.Get(ctx, hash); err == nil && ok && e.Revoked {
			lg.Warn("refresh_revoked_cached",
				slog.String("op", op),
				slog.String("user_id", e.UserID.String()),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}
	}

	token, err := s.storage.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_lookup_not_found",
				slog.String("op", op),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("refresh_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if token.Revoked {
		lg.Warn("refresh_revoked",
			slog.String("op", op),
			slog.String("user_id", token.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	if time.Now().UTC().After(token.ExpiresAt) {
		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", token.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	return token, nil
}

// cacheSet кладёт запись о токене в кэш; ошибки кэша только логируются.
func (s *Service) cacheSet(ctx context.Context, hash string, token *models.RefreshToken) {
	if s.rcache == nil {
		return
	}

	entry := &cache.RefreshEntry{
		UserID:    token.UserID,
		Revoked:   token.Revoked,
		ExpiresAt: token.ExpiresAt,
	}
	if err := s.rcache.Set(ctx, hash, entry, time.Until(token.ExpiresAt)); err != nil {
		log.From(ctx).Warn("refresh_cache_set_failed", slog.String("err", err.Error()))
	}
}

// cacheMarkRevoked помечает токен отозванным в кэше; ошибки кэша только логируются.
func (s *Service) cacheMarkRevoked(ctx context.Context, hash string) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.MarkRevoked(ctx, hash); err != nil {
		log.From(ctx).Warn("refresh_cache_revoke_failed", slog.String("err", err.Error()))
	}
}
