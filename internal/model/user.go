package model

import "time"

// TokenSet はIdPが発行した認証情報一式を表す。
// 永続化後はCredential Storeが唯一の所有者であり、リクエストをまたいでメモリに保持しない。
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// Profile はIdPから取得したユーザーのプロフィール情報を表す。
type Profile struct {
	ID      string
	Name    string
	Email   string
	Picture string
}
