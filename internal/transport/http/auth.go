package http

import (
	"net/http"
	"time"

	apierrors "github.com/bookingapp/auth-service/internal/errors"
	"github.com/bookingapp/auth-service/internal/models"
	"github.com/bookingapp/auth-service/internal/service"
	"github.com/bookingapp/auth-service/internal/transport/http/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	UserName string `json:"user_name,omitempty"`
	Password string `json:"password"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type forgetRequest struct {
	Email string `json:"email"`
}

type tokenPairResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpireOn     time.Time `json:"expire_on"`
}

func toTokenPairResponse(tp *models.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		ExpireOn:     tp.ExpireOn,
	}
}

// Login — POST /auth/login. Успех: 200 с парой токенов.
// Любой отказ гейтов — 400 без различения причины.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	pair, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

// Register — POST /auth/register. Успех: 200 без тела — токены при
// регистрации не выпускаются, вход возможен только после одобрения.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	_, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:    in.Email,
		UserName: in.UserName,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Refresh — POST /auth/refresh. Успех: 200 с новой парой токенов;
// любой токенный отказ — 401.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), in.AccessToken, in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, refreshFailure(err))
		return
	}

	writeJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

// Logout — POST /auth/logout, аутентифицируется Bearer access-токеном.
// Идемпотентен: повторный выход и выход без активных сессий — 200.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	principal, err := h.svc.ValidateToken(r.Context(), token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), principal); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Forget — POST /auth/forget. Всегда 200 без тела: ответ не раскрывает,
// зарегистрирован ли email.
func (h *Handlers) Forget(w http.ResponseWriter, r *http.Request) {
	var in forgetRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	if err := h.svc.Forget(r.Context(), in.Email); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// refreshFailure сводит любой доменный отказ обмена к токенному (401):
// заблокированный на момент обновления пользователь неотличим для клиента
// от недействительного токена.
func refreshFailure(err error) error {
	switch {
	case errorsIsAny(err,
		service.ErrInvalidToken,
		service.ErrTokenExpired,
		service.ErrTokenRevoked):
		return err
	case errorsIsAny(err,
		service.ErrAccountBlocked,
		service.ErrInvalidCredentials,
		service.ErrAccountNotApproved):
		return service.ErrInvalidToken
	default:
		return err
	}
}
