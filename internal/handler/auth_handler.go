package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/clubman/internal/auth"
	"github.com/hitoshi/clubman/internal/middleware"
	"github.com/hitoshi/clubman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// SignUp はセルフサインアップでユーザーを作成する。
	// 作成されるユーザーは常にATHLETEロール・PENDINGステータス。
	SignUp(ctx context.Context, input auth.SignUpInput) (*model.User, error)
	// SignIn は資格情報を検証し、ユーザーとアクセストークンを返す。
	SignIn(ctx context.Context, email, password string) (*model.User, string, time.Time, error)
}

// SignInRecorder はサインイン結果のメトリクス記録インターフェース。
type SignInRecorder interface {
	RecordSignInSuccess()
	RecordSignInFailure(reason string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	users   middleware.UserFinder
	metrics SignInRecorder
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, users middleware.UserFinder, metrics SignInRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		users:   users,
		metrics: metrics,
		config:  config,
	}
}

// signUpRequest はサインアップリクエストのボディ。
type signUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

// signInRequest はサインインリクエストのボディ。
type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUp はセルフサインアップを処理する。
// POST /auth/signup
// 作成直後のユーザーはPENDINGのためサインインできず、トークンは発行しない。
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.SignUp(r.Context(), auth.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// SignIn は資格情報を検証し、アクセストークンをCookieに設定する。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, expiresAt, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordSignInFailure(err)
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordSignInSuccess()
	h.setAccessTokenCookie(w, token, expiresAt)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Logout はアクセストークンCookieをクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	user, err := h.users.FindByID(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// setAccessTokenCookie はアクセストークンをHttpOnly Cookieに設定する。
func (h *AuthHandler) setAccessTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// recordSignInFailure はサインイン失敗を理由別にメトリクスへ記録する。
func (h *AuthHandler) recordSignInFailure(err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		h.metrics.RecordSignInFailure("internal")
		return
	}

	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials:
		h.metrics.RecordSignInFailure("invalid_credentials")
	case model.ErrCodeAccountNotActive:
		h.metrics.RecordSignInFailure("account_not_active")
	default:
		h.metrics.RecordSignInFailure("internal")
	}
}
