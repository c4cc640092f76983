package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookingapp/auth-service/internal/config"
	"github.com/bookingapp/auth-service/internal/models"
	"github.com/bookingapp/auth-service/internal/service"
	"github.com/bookingapp/auth-service/internal/storage"
	"github.com/bookingapp/auth-service/mocks"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "transport-secret"

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       testSecret,
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "booking-auth",
		Audience:        []string{"booking-app"},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockStorage) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	st := mocks.NewMockStorage(ctrl)
	svc := service.New(st, mocks.NewMockNotifier(ctrl), testAuthCfg())

	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(svc, Options{Logger: lg, Timeout: 5 * time.Second}), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func apiErr(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code, resp.Error.Message
}

func bcryptHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func storedUser(t *testing.T, pw string) *models.User {
	t.Helper()
	return &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: bcryptHash(t, pw),
		Approved:     true,
		Roles:        []string{models.RoleUser},
	}
}

// signedAccessToken — access-токен того же формата, что выпускает сервис.
func signedAccessToken(t *testing.T, uid uuid.UUID, ttl time.Duration) string {
	t.Helper()

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"uid":   uid.String(),
		"email": "user@example.com",
		"roles": []string{models.RoleUser},
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Add(-time.Minute).Unix(),
		"iss":   "booking-auth",
		"sub":   uid.String(),
		"aud":   []string{"booking-app"},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestLogin_OK_ReturnsTokenPair(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)
	user := storedUser(t, "Abcdef1!")

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/login",
		map[string]string{"email": "user@example.com", "password": "Abcdef1!"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		ExpireOn     time.Time `json:"expire_on"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.WithinDuration(t, time.Now().UTC().Add(time.Minute), resp.ExpireOn, 5*time.Second)
}

// Все причины отказа входа дают один и тот же ответ: 400 invalid_credentials.
func TestLogin_AllGateFailures_Indistinguishable(t *testing.T) {
	t.Parallel()

	pw := "Abcdef1!"

	cases := []struct {
		name  string
		setup func(t *testing.T, st *mocks.MockStorage)
	}{
		{
			name: "unknown_user",
			setup: func(t *testing.T, st *mocks.MockStorage) {
				st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
			},
		},
		{
			name: "wrong_password",
			setup: func(t *testing.T, st *mocks.MockStorage) {
				u := storedUser(t, "Different1!")
				st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(u, nil)
			},
		},
		{
			name: "not_approved",
			setup: func(t *testing.T, st *mocks.MockStorage) {
				u := storedUser(t, pw)
				u.Approved = false
				st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(u, nil)
			},
		},
		{
			name: "blocked",
			setup: func(t *testing.T, st *mocks.MockStorage) {
				u := storedUser(t, pw)
				u.Blocked = true
				st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(u, nil)
			},
		},
	}

	var wantCode, wantMsg string
	for i, tc := range cases {
		tc := tc
		router, st := newTestRouter(t)
		tc.setup(t, st)

		rec := doJSON(t, router, http.MethodPost, "/auth/login",
			map[string]string{"email": "user@example.com", "password": pw}, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code, tc.name)

		code, msg := apiErr(t, rec)
		if i == 0 {
			wantCode, wantMsg = code, msg
			require.Equal(t, "invalid_credentials", code)
			continue
		}
		require.Equal(t, wantCode, code, tc.name)
		require.Equal(t, wantMsg, msg, tc.name)
	}
}

func TestLogin_BadJSON(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := apiErr(t, rec)
	require.Equal(t, "invalid_argument", code)
}

func TestLogin_StorageDown_Returns500(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, context.DeadlineExceeded)

	rec := doJSON(t, router, http.MethodPost, "/auth/login",
		map[string]string{"email": "user@example.com", "password": "Abcdef1!"}, nil)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestRegister_OK_NoTokensInBody(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)

	st.EXPECT().UserByEmail(gomock.Any(), "new@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	st.EXPECT().AddUserRole(gomock.Any(), gomock.Any(), models.RoleUser).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/register",
		map[string]string{"email": "new@example.com", "user_name": "New", "password": "Abcdef1!"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	// Регистрация не выпускает токены: тело пустое.
	require.Empty(t, rec.Body.String())
}

func TestRegister_EmailTaken_409(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(storedUser(t, "Abcdef1!"), nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/register",
		map[string]string{"email": "user@example.com", "password": "Abcdef1!"}, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	code, _ := apiErr(t, rec)
	require.Equal(t, "already_exists", code)
}

func TestRegister_WeakPassword_400(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register",
		map[string]string{"email": "new@example.com", "password": "short"}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := apiErr(t, rec)
	require.Equal(t, "invalid_argument", code)
}

func TestRefresh_OK(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)
	user := storedUser(t, "Abcdef1!")

	// Просроченный access + живой refresh — основной сценарий обмена.
	access := signedAccessToken(t, user.ID, -time.Hour)
	plain := "refresh-plain"

	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(&models.RefreshToken{
		UserID:           user.ID,
		RefreshTokenHash: "refresh-hash",
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	st.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), gomock.Any()).Return(true, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/refresh",
		map[string]string{"access_token": access, "refresh_token": plain}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefresh_TokenFailures_401(t *testing.T) {
	t.Parallel()

	user := storedUser(t, "Abcdef1!")
	access := signedAccessToken(t, user.ID, -time.Hour)

	cases := []struct {
		name  string
		setup func(st *mocks.MockStorage)
	}{
		{
			name: "unknown_refresh",
			setup: func(st *mocks.MockStorage) {
				st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
			},
		},
		{
			name: "revoked_refresh",
			setup: func(st *mocks.MockStorage) {
				st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(&models.RefreshToken{
					UserID:    user.ID,
					ExpiresAt: time.Now().UTC().Add(time.Hour),
					Revoked:   true,
				}, nil)
			},
		},
		{
			name: "expired_refresh",
			setup: func(st *mocks.MockStorage) {
				st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(&models.RefreshToken{
					UserID:    user.ID,
					ExpiresAt: time.Now().UTC().Add(-time.Minute),
				}, nil)
			},
		},
		{
			name: "user_blocked_now",
			setup: func(st *mocks.MockStorage) {
				blocked := *user
				blocked.Blocked = true
				st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(&models.RefreshToken{
					UserID:    user.ID,
					ExpiresAt: time.Now().UTC().Add(time.Hour),
				}, nil)
				st.EXPECT().UserByID(gomock.Any(), user.ID).Return(&blocked, nil)
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router, st := newTestRouter(t)
			tc.setup(st)

			rec := doJSON(t, router, http.MethodPost, "/auth/refresh",
				map[string]string{"access_token": access, "refresh_token": "some-refresh"}, nil)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			code, _ := apiErr(t, rec)
			require.Equal(t, "unauthenticated", code)
		})
	}
}

func TestRefresh_ForgedAccessToken_401(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	forged := func() string {
		claims := jwt.MapClaims{
			"uid": uuid.New().String(),
			"exp": time.Now().Add(time.Minute).Unix(),
			"iss": "booking-auth",
			"aud": []string{"booking-app"},
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("attacker-secret"))
		require.NoError(t, err)
		return s
	}()

	rec := doJSON(t, router, http.MethodPost, "/auth/refresh",
		map[string]string{"access_token": forged, "refresh_token": "whatever"}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_OK_RevokesAllSessions(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)
	uid := uuid.New()

	st.EXPECT().RevokeAllByUserID(gomock.Any(), uid).Return([]string{"h1", "h2"}, nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/logout", nil,
		map[string]string{"Authorization": "Bearer " + signedAccessToken(t, uid, time.Minute)})

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_Idempotent_SecondCallStillOK(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)
	uid := uuid.New()
	token := signedAccessToken(t, uid, time.Minute)

	st.EXPECT().RevokeAllByUserID(gomock.Any(), uid).Return([]string{"h1"}, nil)
	st.EXPECT().RevokeAllByUserID(gomock.Any(), uid).Return(nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/logout", nil,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/logout", nil,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_MissingOrExpiredBearer_401(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/logout", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := signedAccessToken(t, uuid.New(), -time.Hour)
	rec = doJSON(t, router, http.MethodPost, "/auth/logout", nil,
		map[string]string{"Authorization": "Bearer " + expired})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Ответ /auth/forget одинаков для известного и неизвестного email.
func TestForget_Always200(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	st := mocks.NewMockStorage(ctrl)
	nt := mocks.NewMockNotifier(ctrl)
	svc := service.New(st, nt, testAuthCfg())
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(svc, Options{Logger: lg, Timeout: 5 * time.Second})

	user := storedUser(t, "Abcdef1!")
	sent := make(chan struct{})

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	nt.EXPECT().SendPasswordResetMail(gomock.Any(), user).
		DoAndReturn(func(context.Context, *models.User) error {
			close(sent)
			return nil
		})

	rec := doJSON(t, router, http.MethodPost, "/auth/forget",
		map[string]string{"email": "user@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("password reset mail was not triggered")
	}

	st.EXPECT().UserByEmail(gomock.Any(), "ghost@example.com").Return(nil, storage.ErrNotFound)

	rec = doJSON(t, router, http.MethodPost, "/auth/forget",
		map[string]string{"email": "ghost@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestRequestID_EchoedInErrorBody(t *testing.T) {
	t.Parallel()

	router, st := newTestRouter(t)
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)

	rec := doJSON(t, router, http.MethodPost, "/auth/login",
		map[string]string{"email": "user@example.com", "password": "Abcdef1!"},
		map[string]string{"X-Request-Id": "req-42"})

	require.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))

	var resp struct {
		Error struct {
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "req-42", resp.Error.RequestID)
}

func TestUnknownRoute_404(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/auth/login", nil, nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
