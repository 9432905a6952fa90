// Package app はアプリケーションの初期化、依存関係のワイヤリング、サブコマンドの実行を提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/drivegate/internal/auth"
	"github.com/hitoshi/drivegate/internal/config"
	"github.com/hitoshi/drivegate/internal/database"
	"github.com/hitoshi/drivegate/internal/datastore"
	"github.com/hitoshi/drivegate/internal/gateway"
	"github.com/hitoshi/drivegate/internal/handler"
	"github.com/hitoshi/drivegate/internal/logger"
	"github.com/hitoshi/drivegate/internal/metrics"
	"github.com/hitoshi/drivegate/internal/middleware"
	"github.com/hitoshi/drivegate/internal/mirror"
	"github.com/hitoshi/drivegate/internal/repository"
	"github.com/hitoshi/drivegate/internal/security"
	"github.com/hitoshi/drivegate/internal/storage"
)

// dotEnvPath は起動時に読み込む.envファイルのパス。
const dotEnvPath = ".env"

// shutdownTimeout はグレースフルシャットダウンの待機上限。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envファイルの読み込み
	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return nil, err
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 4. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。サブコマンド未指定の場合はserveとして起動する。
func Run(w io.Writer, args []string) error {
	cmd := NewRootCommand(w)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// application はserveモードでワイヤリングされたコンポーネント群。
type application struct {
	handler     http.Handler
	mirror      *mirror.Mirror
	rateLimiter *middleware.RateLimiter
}

// close はバックグラウンド処理の完了を待ち、リソースを解放する。
func (a *application) close() {
	a.mirror.Wait()
	a.rateLimiter.Stop()
}

// newApplication はデータストアとConfigから全依存関係をワイヤリングする。
func newApplication(cfg *config.Config, store datastore.Store, reg *prometheus.Registry, log *slog.Logger) *application {
	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. リポジトリ
	credRepo := repository.NewDatastoreCredentialRepo(store)
	resourceRepo := repository.NewDatastoreResourceRepo(store)

	// 3. 認証
	provider := auth.NewGoogleProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       cfg.GoogleScopes,
	})
	authService := auth.NewService(provider, credRepo)
	binder := auth.NewBinder(credRepo, provider, collector)

	// 4. ミラーとゲートウェイ
	resourceMirror := mirror.New(resourceRepo, security.NewTextSanitizer(), collector, mirror.Config{
		MaxConcurrent: cfg.MirrorMaxConcurrent,
		Timeout:       cfg.MirrorTimeout,
	})
	gw := gateway.New(binder, storage.NewGoogleDrive(""), provider, resourceMirror, resourceRepo, collector)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitUpload),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		StatusMetrics:     collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker:  store,
		MetricsHandler: metrics.SetupMetricsRoute(reg),

		AuthService: authService,
		AuthConfig:  handler.AuthHandlerConfig{FrontendURL: cfg.FrontendURL},

		DriveService:   gw,
		UploadMaxBytes: cfg.UploadMaxBytes,

		UserService: handler.NewUserServiceAdapter(gw),
	})

	return &application{
		handler:     router,
		mirror:      resourceMirror,
		rateLimiter: rateLimiter,
	}
}

// newRegistry はランタイムメトリクスを登録済みのPrometheusレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// openStore はDATASTORE_DRIVERに応じたデータストアを開き、疎通を確認する。
func openStore(ctx context.Context, cfg *config.Config) (datastore.Store, error) {
	var store datastore.Store

	switch cfg.DatastoreDriver {
	case config.DriverPostgres:
		db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
		if err != nil {
			return nil, err
		}
		store = datastore.NewPostgresStore(db)
	case config.DriverRedis:
		store = datastore.NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
	case config.DriverMemory:
		store = datastore.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported datastore driver %q", cfg.DatastoreDriver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect to %s datastore: %w", cfg.DatastoreDriver, err)
	}

	return store, nil
}

// runServe はAPIサーバーモードで起動する。
// データストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	slog.Info("datastore connection established",
		slog.String("driver", cfg.DatastoreDriver),
	)

	app := newApplication(cfg, store, newRegistry(), slog.Default())
	defer app.close()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// postgres以外のドライバではスキーマを持たないため何もしない。
func runMigrate(cfg *config.Config) error {
	if cfg.DatastoreDriver != config.DriverPostgres {
		slog.Info("migrations skipped: datastore has no schema",
			slog.String("driver", cfg.DatastoreDriver),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// serverPort はSERVER_PORTを返す。未設定の場合は8080。
func serverPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return "8080"
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
