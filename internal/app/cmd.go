package app

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hitoshi/drivegate/internal/config"
)

// version はビルド時にldflagsで設定される。
var version = "dev"

// NewRootCommand はサブコマンドを登録したルートコマンドを返す。
// サブコマンド未指定の場合はserveとして動作する。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:     "drivegate",
		Short:   "Google Drive gateway API server",
		Version: version,
		// エラー出力は呼び出し側で行う
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serveCommand(w)
		},
	}

	root.AddCommand(
		newServeCommand(w),
		newMigrateCommand(w),
		newHealthcheckCommand(),
	)

	return root
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serveCommand(w)
		},
	}
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply datastore schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := initWithLog(w, "migrate")
			if err != nil {
				return err
			}
			return runMigrate(cfg)
		},
	}
}

// newHealthcheckCommand は軽量サブコマンドのため、フル初期化をスキップする。
func newHealthcheckCommand() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the /health endpoint of a running server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if baseURL == "" {
				baseURL = "http://localhost:" + serverPort()
			}
			return runHealthcheck(baseURL)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "base URL of the server (default http://localhost:$SERVER_PORT)")

	return cmd
}

func serveCommand(w io.Writer) error {
	cfg, err := initWithLog(w, "serve")
	if err != nil {
		return err
	}
	return runServe(cfg)
}

func initWithLog(w io.Writer, command string) (*config.Config, error) {
	cfg, err := Init(w)
	if err != nil {
		return nil, err
	}

	slog.Info("starting application",
		slog.String("command", command),
		slog.String("version", version),
		slog.String("port", cfg.ServerPort),
		slog.String("datastore", cfg.DatastoreDriver),
	)

	return cfg, nil
}
