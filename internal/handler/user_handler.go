package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/drivegate/internal/middleware"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetProfile はユーザーのIdPプロフィールを返す。
	GetProfile(ctx context.Context, userID string) (*profileResponse, error)
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// UserHandler はユーザー情報のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// GetProfile はユーザーのプロフィールを返す。
// GET /user/profile?userId=
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProfile(r.Context(), middleware.UserIDFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
