package handler

import (
	"context"

	"github.com/hitoshi/drivegate/internal/auth"
	"github.com/hitoshi/drivegate/internal/model"
)

// ProfileGetter はユーザーIDからプロフィールを取得する。
type ProfileGetter interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// UserServiceAdapter は gateway.Gateway を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	profiles ProfileGetter
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter(profiles ProfileGetter) *UserServiceAdapter {
	return &UserServiceAdapter{profiles: profiles}
}

// GetProfile はプロフィールのうち名前と画像URLだけをレスポンス型で返す。
func (a *UserServiceAdapter) GetProfile(ctx context.Context, userID string) (*profileResponse, error) {
	p, err := a.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &profileResponse{Name: p.Name, Picture: p.Picture}, nil
}

// --- compile-time interface checks ---

var _ UserServiceInterface = (*UserServiceAdapter)(nil)
var _ AuthServiceInterface = (*auth.Service)(nil)
