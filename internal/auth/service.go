// Package auth はOAuthログインフローと、保存済みトークンからのセッション構築を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/hitoshi/drivegate/internal/model"
	"github.com/hitoshi/drivegate/internal/repository"
)

// IdentityProvider はOAuth認証プロバイダーのインターフェース。
type IdentityProvider interface {
	// AuthCodeURL は同意画面のURLを生成する。
	AuthCodeURL(state string) string
	// Exchange は認可コードをトークンに交換する。
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// TokenSource は自動リフレッシュ付きのTokenSourceを返す。
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
	// GetProfile はトークンの持ち主のプロフィールを取得する。
	GetProfile(ctx context.Context, ts oauth2.TokenSource) (*model.Profile, error)
}

// Service はログインフローのビジネスロジックを提供する。
type Service struct {
	provider IdentityProvider
	creds    repository.CredentialRepository
}

// NewService はServiceを生成する。
func NewService(provider IdentityProvider, creds repository.CredentialRepository) *Service {
	return &Service{provider: provider, creds: creds}
}

// AuthURL は同意画面のURLを返す。
func (s *Service) AuthURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// ResolveFromCode は認可コードをTokenSetに交換し、プロフィールから安定したユーザーIDを導出する。
// 結果の永続化は行わない。
func (s *Service) ResolveFromCode(ctx context.Context, code string) (string, *model.TokenSet, error) {
	if code == "" {
		return "", nil, fmt.Errorf("%w: authorization code is required", model.ErrBadRequest)
	}

	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return "", nil, err
	}

	profile, err := s.provider.GetProfile(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return "", nil, err
	}
	if profile.ID == "" {
		return "", nil, fmt.Errorf("%w: profile has no user id", model.ErrUpstreamFailure)
	}

	return profile.ID, FromOAuth2Token(tok), nil
}

// Login は認可コードからユーザーを特定し、TokenSetを保存してユーザーIDを返す。
func (s *Service) Login(ctx context.Context, code string) (string, error) {
	userID, tokens, err := s.ResolveFromCode(ctx, code)
	if err != nil {
		return "", err
	}

	if err := s.creds.Put(ctx, userID, tokens); err != nil {
		return "", fmt.Errorf("failed to store credentials: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", userID),
		slog.Bool("has_refresh_token", tokens.RefreshToken != ""),
	)
	return userID, nil
}
