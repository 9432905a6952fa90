// Package repository はデータ永続化のインターフェースを定義する。
//
// 全てのリポジトリはユーザーIDをパーティションキーとし、
// users/{UserId}/... 以外の名前空間を読み書きしない。
package repository

import (
	"context"

	"github.com/hitoshi/drivegate/internal/model"
)

// CredentialRepository はユーザーごとのTokenSetの永続化インターフェース。
// ビジネスロジックを持たない純粋なキー付きストレージ。
type CredentialRepository interface {
	// Put はユーザーのTokenSetを冪等にUPSERTする。既存のTokenSetは上書きされる。
	Put(ctx context.Context, userID string, tokens *model.TokenSet) error

	// Get はユーザーのTokenSetを取得する。
	// 保存されていない場合はmodel.ErrNotAuthenticatedを返す。
	Get(ctx context.Context, userID string) (*model.TokenSet, error)
}

// ResourceRepository はユーザー名前空間にミラーするリソースメタデータの永続化インターフェース。
type ResourceRepository interface {
	// UpsertFolder はフォルダレコードを users/{userID}/resources/{id} にUPSERTする。
	UpsertFolder(ctx context.Context, userID string, record model.ResourceRecord) error

	// UpsertFile はアップロードしたファイルのレコードを users/{userID}/files/{id} にUPSERTする。
	UpsertFile(ctx context.Context, userID string, record model.FileRecord) error

	// ListFolders はユーザー名前空間にミラーされたフォルダレコードをID順で返す。
	ListFolders(ctx context.Context, userID string) ([]model.ResourceRecord, error)
}
