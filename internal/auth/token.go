package auth

import (
	"golang.org/x/oauth2"

	"github.com/hitoshi/drivegate/internal/model"
)

// ToOAuth2Token は保存済みのTokenSetをoauth2.Tokenに変換する。
func ToOAuth2Token(ts *model.TokenSet) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
		TokenType:    ts.TokenType,
		Expiry:       ts.Expiry,
	}
	if ts.Scope != "" {
		tok = tok.WithExtra(map[string]any{"scope": ts.Scope})
	}
	return tok
}

// FromOAuth2Token はoauth2.Tokenを保存用のTokenSetに変換する。
// スコープはトークンレスポンスの追加フィールドから取得する。
func FromOAuth2Token(tok *oauth2.Token) *model.TokenSet {
	ts := &model.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		ts.Scope = scope
	}
	return ts
}
