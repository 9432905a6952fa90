package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/hitoshi/drivegate/internal/model"
)

// DefaultScopes はログイン時に要求するスコープ。
var DefaultScopes = []string{
	drive.DriveScope,
	oauth2api.UserinfoProfileScope,
	oauth2api.UserinfoEmailScope,
}

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	APIEndpoint string
}

// GoogleProvider はGoogle OAuth 2.0によるコード交換とプロフィール取得を提供する。
// OAuthプロトコル自体はgolang.org/x/oauth2に委譲する。
type GoogleProvider struct {
	config      *oauth2.Config
	apiEndpoint string
}

// NewGoogleProvider はGoogleProviderを生成する。
func NewGoogleProvider(cfg GoogleOAuthConfig) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		apiEndpoint: cfg.APIEndpoint,
	}
}

// AuthCodeURL は同意画面のURLを生成する。
// リフレッシュトークンを確実に受け取るためオフラインアクセスと再同意を要求する。
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange は認可コードをトークンに交換する。
// 認可コードは一度しか使えず、再利用はmodel.ErrCodeExchangeFailedになる。
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrCodeExchangeFailed, err)
	}
	return tok, nil
}

// TokenSource は期限切れ時に自動リフレッシュするTokenSourceを返す。
func (p *GoogleProvider) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return p.config.TokenSource(ctx, tok)
}

// GetProfile はuserinfo APIからプロフィールを取得する。
func (p *GoogleProvider) GetProfile(ctx context.Context, ts oauth2.TokenSource) (*model.Profile, error) {
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch profile: %w", model.ErrUpstreamFailure, err)
	}

	return &model.Profile{
		ID:      info.Id,
		Name:    info.Name,
		Email:   info.Email,
		Picture: info.Picture,
	}, nil
}

// compile-time interface check
var _ IdentityProvider = (*GoogleProvider)(nil)
