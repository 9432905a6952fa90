package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/hitoshi/drivegate/internal/metrics"
	"github.com/hitoshi/drivegate/internal/model"
	"github.com/hitoshi/drivegate/internal/repository"
)

// Session は1回の操作の間だけ有効な、ユーザーに紐づいた認可済みコンテキスト。
// リクエストをまたいで保持してはならない。
type Session struct {
	UserID      string
	TokenSource oauth2.TokenSource
}

// TokenSourceFactory は保存済みトークンからTokenSourceを生成する。
type TokenSourceFactory interface {
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}

// Binder はユーザーIDから保存済みTokenSetを読み込み、Sessionを構築する。
// TokenSetをキャッシュせず、Bindのたびにストアから読み直す。
type Binder struct {
	creds   repository.CredentialRepository
	sources TokenSourceFactory
	metrics metrics.MetricsCollector
}

// NewBinder はBinderを生成する。
func NewBinder(creds repository.CredentialRepository, sources TokenSourceFactory, mc metrics.MetricsCollector) *Binder {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Binder{creds: creds, sources: sources, metrics: mc}
}

// Bind はuserIDのSessionを構築する。
// トークンが保存されていない場合はmodel.ErrNotAuthenticated、
// userIDが不正な場合はmodel.ErrInvalidUserIDを返す。
func (b *Binder) Bind(ctx context.Context, userID string) (*Session, error) {
	stored, err := b.creds.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	ts := &persistingTokenSource{
		ctx:          context.WithoutCancel(ctx),
		userID:       userID,
		base:         b.sources.TokenSource(ctx, ToOAuth2Token(stored)),
		creds:        b.creds,
		metrics:      b.metrics,
		lastAccess:   stored.AccessToken,
		refreshToken: stored.RefreshToken,
	}
	return &Session{UserID: userID, TokenSource: ts}, nil
}

// persistingTokenSource はリフレッシュで得た新しいトークンをストアに書き戻すTokenSource。
// 書き戻しの失敗は操作自体を失敗させない。
type persistingTokenSource struct {
	ctx     context.Context
	userID  string
	base    oauth2.TokenSource
	creds   repository.CredentialRepository
	metrics metrics.MetricsCollector

	mu           sync.Mutex
	lastAccess   string
	refreshToken string
}

// Token はトークンを返し、アクセストークンが変わっていれば保存する。
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to obtain token: %w", model.ErrUpstreamFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken == s.lastAccess {
		return tok, nil
	}
	s.lastAccess = tok.AccessToken

	refreshed := FromOAuth2Token(tok)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = s.refreshToken
	}

	if err := s.creds.Put(s.ctx, s.userID, refreshed); err != nil {
		s.metrics.RecordTokenRefresh(metrics.ResultFailure)
		slog.Warn("failed to persist refreshed token",
			slog.String("user_id", s.userID),
			slog.String("error", err.Error()),
		)
		return tok, nil
	}

	s.metrics.RecordTokenRefresh(metrics.ResultSuccess)
	slog.Info("persisted refreshed token",
		slog.String("user_id", s.userID),
		slog.Time("expiry", tok.Expiry),
	)
	return tok, nil
}
