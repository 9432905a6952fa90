package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/drivegate/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusMetrics     middleware.StatusMetrics
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ストレージ操作
	DriveService   DriveServiceInterface
	UploadMaxBytes int64

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusMetrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	driveHandler := NewDriveHandler(deps.DriveService, deps.UploadMaxBytes)
	userHandler := NewUserHandler(deps.UserService)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", HealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- API ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証（OAuthフロー）
		r.Get("/auth/url", authHandler.AuthURL)
		r.Get("/oauth2callback", authHandler.Callback)

		// ストレージ操作
		r.Route("/drive", func(r chi.Router) {
			r.Get("/folders", driveHandler.ListFolders)
			r.Post("/folders", driveHandler.CreateFolder)
			r.Get("/folders/{id}", driveHandler.ListChildren)

			// POST /drive/upload - アップロード専用レート制限を追加
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/upload", driveHandler.UploadFile)

			r.Get("/files/{id}/download", driveHandler.DownloadFile)
			r.Get("/mirror", driveHandler.ListMirror)
		})

		// ユーザー
		r.Get("/user/profile", userHandler.GetProfile)
	})

	return r
}
