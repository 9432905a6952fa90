package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/drivegate/internal/datastore"
	"github.com/hitoshi/drivegate/internal/model"
)

// DatastoreCredentialRepo はdatastore.Storeを使用したCredentialRepository実装。
// TokenSetは users/{userID}/tokens に保存する。
type DatastoreCredentialRepo struct {
	store datastore.Store
}

// NewDatastoreCredentialRepo はDatastoreCredentialRepoを生成する。
func NewDatastoreCredentialRepo(store datastore.Store) *DatastoreCredentialRepo {
	return &DatastoreCredentialRepo{store: store}
}

// Put はユーザーのTokenSetを上書き保存する。リトライは行わない。
func (r *DatastoreCredentialRepo) Put(ctx context.Context, userID string, tokens *model.TokenSet) error {
	if tokens == nil {
		return fmt.Errorf("put tokens: %w: nil token set", model.ErrBadRequest)
	}

	path, err := userPath(userID, "tokens")
	if err != nil {
		return err
	}

	if err := r.store.Set(ctx, path, tokens); err != nil {
		return wrapStoreError("put tokens", err)
	}
	return nil
}

// Get はユーザーのTokenSetを取得する。
// 保存されていない場合はmodel.ErrNotAuthenticatedを返す。
func (r *DatastoreCredentialRepo) Get(ctx context.Context, userID string) (*model.TokenSet, error) {
	path, err := userPath(userID, "tokens")
	if err != nil {
		return nil, err
	}

	var tokens model.TokenSet
	found, err := r.store.Get(ctx, path, &tokens)
	if err != nil {
		return nil, wrapStoreError("get tokens", err)
	}
	if !found || (tokens.AccessToken == "" && tokens.RefreshToken == "") {
		return nil, model.ErrNotAuthenticated
	}

	return &tokens, nil
}

// compile-time interface check
var _ CredentialRepository = (*DatastoreCredentialRepo)(nil)
