package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hitoshi/drivegate/internal/model"
)

// fileFields は一覧・作成で取得するフィールド。
const fileFields = "id, name, mimeType, parents"

// GoogleDrive はGoogle Drive API v3によるProvider実装。
type GoogleDrive struct {
	endpoint string
}

// NewGoogleDrive はGoogleDriveを生成する。endpointが空の場合は本番APIを使用する。
func NewGoogleDrive(endpoint string) *GoogleDrive {
	return &GoogleDrive{endpoint: endpoint}
}

// service はTokenSourceに紐づいたDriveクライアントを生成する。
func (g *GoogleDrive) service(ctx context.Context, ts oauth2.TokenSource) (*drive.Service, error) {
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return svc, nil
}

// ListFolders はフォルダ種別の全リソースを返す。ページングは全て辿る。
func (g *GoogleDrive) ListFolders(ctx context.Context, ts oauth2.TokenSource) ([]model.RemoteFile, error) {
	return g.list(ctx, ts, fmt.Sprintf("mimeType='%s'", model.FolderMimeType))
}

// ListChildren は親がparentIDであるリソースを返す。
func (g *GoogleDrive) ListChildren(ctx context.Context, ts oauth2.TokenSource, parentID string) ([]model.RemoteFile, error) {
	return g.list(ctx, ts, fmt.Sprintf("'%s' in parents", escapeQuery(parentID)))
}

func (g *GoogleDrive) list(ctx context.Context, ts oauth2.TokenSource, query string) ([]model.RemoteFile, error) {
	svc, err := g.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	files := []model.RemoteFile{}
	err = svc.Files.List().
		Q(query).
		Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")")).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, toRemoteFile(f))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError("list files", err)
	}
	return files, nil
}

// CreateFolder はフォルダを作成する。parentIDが空の場合はルートに作成する。
func (g *GoogleDrive) CreateFolder(ctx context.Context, ts oauth2.TokenSource, name, parentID string) (*model.RemoteFile, error) {
	svc, err := g.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	meta := &drive.File{Name: name, MimeType: model.FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := svc.Files.Create(meta).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, wrapError("create folder", err)
	}
	f := toRemoteFile(created)
	return &f, nil
}

// CreateFile はcontentをアップロードしてファイルを作成する。
func (g *GoogleDrive) CreateFile(ctx context.Context, ts oauth2.TokenSource, meta FileMetadata, content io.Reader) (*model.RemoteFile, error) {
	svc, err := g.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	file := &drive.File{
		Name:        meta.Name,
		MimeType:    meta.MimeType,
		Description: meta.Description,
	}
	if meta.ParentID != "" {
		file.Parents = []string{meta.ParentID}
	}

	created, err := svc.Files.Create(file).
		Media(content, googleapi.ContentType(meta.MimeType)).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapError("upload file", err)
	}
	f := toRemoteFile(created)
	return &f, nil
}

// Download はファイルの内容をストリームで返す。
func (g *GoogleDrive) Download(ctx context.Context, ts oauth2.TokenSource, fileID string) (*Download, error) {
	svc, err := g.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, wrapError("download file", err)
	}

	return &Download{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

// toRemoteFile はDriveのファイルをドメインモデルに変換する。
func toRemoteFile(f *drive.File) model.RemoteFile {
	parents := f.Parents
	if parents == nil {
		parents = []string{}
	}
	return model.RemoteFile{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  parents,
	}
}

// escapeQuery はDriveの検索クエリの文字列リテラル用にエスケープする。
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// wrapError はDrive APIのエラーをUpstreamFailureに分類する。
// 期限切れと失効はどちらも401となり区別しない。
func wrapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("failed to %s (status %d): %w: %w", op, gerr.Code, model.ErrUpstreamFailure, err)
	}
	return fmt.Errorf("failed to %s: %w: %w", op, model.ErrUpstreamFailure, err)
}

// compile-time interface check
var _ Provider = (*GoogleDrive)(nil)
