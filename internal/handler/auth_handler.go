// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// AuthURL は同意画面のURLを返す。
	AuthURL(state string) string
	// Login は認可コードを交換してトークンを保存し、ユーザーIDを返す。
	Login(ctx context.Context, code string) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// FrontendURL はログイン完了後のリダイレクト先。userIdクエリパラメータを付与する。
	FrontendURL string
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// authURLResponse は同意画面URLのレスポンス。
type authURLResponse struct {
	URL string `json:"url"`
}

// AuthURL は同意画面のURLを返す。
// GET /auth/url
func (h *AuthHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, authURLResponse{URL: h.service.AuthURL("")})
}

// Callback はOAuthコールバックを処理する。
// GET /oauth2callback?code=xxx
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// 1. 同意画面で拒否された場合
	if reason := query.Get("error"); reason != "" {
		slog.Warn("oauth consent denied", slog.String("reason", reason))
		writeBadRequest(w, "authorization was denied: "+reason)
		return
	}

	// 2. 認可コードの取得
	code := query.Get("code")
	if code == "" {
		writeBadRequest(w, "missing authorization code")
		return
	}

	// 3. コード交換とトークン保存
	userID, err := h.service.Login(r.Context(), code)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// 4. フロントエンドにリダイレクト
	redirectURL, err := h.frontendURL(userID)
	if err != nil {
		slog.Error("invalid frontend url", slog.String("error", err.Error()))
		handleServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}

// frontendURL はリダイレクト先にuserIdを付与したURLを返す。
func (h *AuthHandler) frontendURL(userID string) (string, error) {
	u, err := url.Parse(h.config.FrontendURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
