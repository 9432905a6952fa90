package repository

import (
	"errors"
	"fmt"

	"github.com/hitoshi/drivegate/internal/datastore"
	"github.com/hitoshi/drivegate/internal/model"
)

// wrapStoreError はデータストアのエラーをドメインエラーに分類する。
// パス不正はBadRequest、それ以外のI/O失敗はStoreUnavailableとなる。
func wrapStoreError(op string, err error) error {
	if errors.Is(err, datastore.ErrInvalidPath) {
		return fmt.Errorf("%s: %w: %w", op, model.ErrBadRequest, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}

// userPath はユーザー名前空間配下のパスを生成する。
// ユーザーIDがキーとして使用できない場合はmodel.ErrInvalidUserIDを返す。
func userPath(userID string, segments ...string) (string, error) {
	if err := datastore.ValidateSegment(userID); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrInvalidUserID, err)
	}
	path, err := datastore.Path(append([]string{"users", userID}, segments...)...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrBadRequest, err)
	}
	return path, nil
}
