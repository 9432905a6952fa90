// Package storage はユーザーのトークンで動作するリモートストレージプロバイダーを提供する。
//
// クライアントは呼び出しごとに渡されたTokenSourceから生成し、
// リクエストをまたいで認可済みクライアントを共有しない。
package storage

import (
	"context"
	"io"

	"golang.org/x/oauth2"

	"github.com/hitoshi/drivegate/internal/model"
)

// FileMetadata はアップロードするファイルのメタデータ。
// ParentIDが空の場合はルートに作成する。
type FileMetadata struct {
	Name        string
	MimeType    string
	Description string
	ParentID    string
}

// Download はダウンロード中のファイル本体。呼び出し側がBodyを閉じる。
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Provider はリモートストレージ操作のインターフェース。
type Provider interface {
	// ListFolders はフォルダ種別の全リソースを返す。
	ListFolders(ctx context.Context, ts oauth2.TokenSource) ([]model.RemoteFile, error)
	// ListChildren は親がparentIDであるリソースを返す。
	ListChildren(ctx context.Context, ts oauth2.TokenSource, parentID string) ([]model.RemoteFile, error)
	// CreateFolder はフォルダを作成する。
	CreateFolder(ctx context.Context, ts oauth2.TokenSource, name, parentID string) (*model.RemoteFile, error)
	// CreateFile は内容付きのファイルを作成する。
	CreateFile(ctx context.Context, ts oauth2.TokenSource, meta FileMetadata, content io.Reader) (*model.RemoteFile, error)
	// Download はファイルの内容をストリームで返す。
	Download(ctx context.Context, ts oauth2.TokenSource, fileID string) (*Download, error)
}
