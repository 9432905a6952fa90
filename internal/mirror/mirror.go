// Package mirror はリモートリソースのメタデータをユーザー名前空間にミラーする。
//
// ミラーはベストエフォートのキャッシュであり、書き込みの失敗はログに残すだけで
// 呼び出し元の操作を失敗させない。書き込みは呼び出し元のレスポンスをブロックしない。
// 表示名はリモートが返した値をそのまま保存する。自由記述の説明文のみマークアップを除去する。
package mirror

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/drivegate/internal/metrics"
	"github.com/hitoshi/drivegate/internal/model"
	"github.com/hitoshi/drivegate/internal/repository"
	"github.com/hitoshi/drivegate/internal/security"
)

// Config はミラーの設定。
type Config struct {
	// MaxConcurrent は1回のミラーで同時に実行する書き込み数の上限。
	MaxConcurrent int
	// Timeout は1回のミラー全体の書き込み期限。
	Timeout time.Duration
}

// DefaultConfig はデフォルトのミラー設定を返す。
func DefaultConfig() Config {
	return Config{MaxConcurrent: 8, Timeout: 10 * time.Second}
}

// Mirror はリソースレコードを非同期にUPSERTする。
type Mirror struct {
	repo      repository.ResourceRepository
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	config    Config

	wg sync.WaitGroup
}

// New はMirrorを生成する。
func New(repo repository.ResourceRepository, sanitizer security.TextSanitizer, mc metrics.MetricsCollector, cfg Config) *Mirror {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Mirror{repo: repo, sanitizer: sanitizer, metrics: mc, config: cfg}
}

// Folders はフォルダレコードを users/{userID}/resources/{id} に書き込む。
// 同じIDが複数回現れた場合は後のレコードが残る。レコードが空なら何も書き込まない。
func (m *Mirror) Folders(ctx context.Context, userID string, records []model.ResourceRecord) {
	records = lastWriteWins(records)
	if len(records) == 0 {
		return
	}

	writes := make([]func(context.Context) error, 0, len(records))
	for _, rec := range records {
		writes = append(writes, func(ctx context.Context) error {
			return m.repo.UpsertFolder(ctx, userID, rec)
		})
	}
	m.dispatch(ctx, userID, writes)
}

// File はアップロードしたファイルのレコードを users/{userID}/files/{id} に書き込む。
func (m *Mirror) File(ctx context.Context, userID string, record model.FileRecord) {
	record.Description = m.sanitizer.Sanitize(record.Description)
	m.dispatch(ctx, userID, []func(context.Context) error{
		func(ctx context.Context) error {
			return m.repo.UpsertFile(ctx, userID, record)
		},
	})
}

// Wait は実行中の全てのミラー書き込みの完了を待つ。
func (m *Mirror) Wait() {
	m.wg.Wait()
}

// dispatch は書き込みをバックグラウンドで並行実行する。
// リクエストのキャンセルは引き継がず、Config.Timeoutで打ち切る。
func (m *Mirror) dispatch(ctx context.Context, userID string, writes []func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()

		var g errgroup.Group
		g.SetLimit(m.config.MaxConcurrent)
		for _, write := range writes {
			g.Go(func() error {
				err := write(ctx)
				m.metrics.RecordMirrorWrite(metrics.ResultOf(err))
				if err != nil {
					slog.Warn("mirror write failed",
						slog.String("user_id", userID),
						slog.String("error", err.Error()),
					)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// lastWriteWins は同じIDのレコードのうち最後のものだけを、元の順序で残す。
func lastWriteWins(records []model.ResourceRecord) []model.ResourceRecord {
	last := make(map[string]int, len(records))
	for i, rec := range records {
		last[rec.ID] = i
	}
	result := make([]model.ResourceRecord, 0, len(last))
	for i, rec := range records {
		if last[rec.ID] == i {
			result = append(result, rec)
		}
	}
	return result
}
