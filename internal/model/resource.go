package model

import "strings"

// ResourceKind はリモートストレージオブジェクトの種別。
type ResourceKind string

const (
	// KindFolder はフォルダを表す。
	KindFolder ResourceKind = "folder"
	// KindFile はフォルダ以外のファイルを表す。
	KindFile ResourceKind = "file"
)

// FolderMimeType はGoogle Driveにおけるフォルダのmime type。
const FolderMimeType = "application/vnd.google-apps.folder"

// KindFromMimeType はmime typeからリソース種別を推定する。
// Drive上でフォルダを表すmime typeは "folder" を含む。
func KindFromMimeType(mimeType string) ResourceKind {
	if strings.Contains(mimeType, "folder") {
		return KindFolder
	}
	return KindFile
}

// RemoteFile はストレージプロバイダーから返されたファイルのメタデータ。
type RemoteFile struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
}

// ResourceRecord はユーザー名前空間にミラーされたリモートリソースのメタデータ。
// リモートが正であり、ミラーは一覧取得の間に古くなり得る。
type ResourceRecord struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Parents []string     `json:"parents"`
	Kind    ResourceKind `json:"kind"`
}

// FileRecord はアップロードしたファイルのミラーレコード。
// 親フォルダ未指定の場合Parentはnull。
type FileRecord struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Parent      *string `json:"parent"`
	Name        string  `json:"name"`
	MimeType    string  `json:"mimeType"`
}
