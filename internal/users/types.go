// Package users はユーザー資格情報の保存と検証を提供します。
package users

import "time"

// Role はユーザーの権限を表します。
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid は定義済みのロールかどうかを返します。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Record はユーザーの保存形式です。PasswordHash は JSON に書き出されません。
type Record struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity はセッションに保持する最小限のユーザー情報です。
type Identity struct {
	ID       int64
	Username string
	Role     Role
}

// IsAdmin は管理者かどうかを返します。
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Profile は管理者向け一覧で表示するユーザー情報です。
type Profile struct {
	ID       int64
	Username string
	Email    string
	Role     Role
}

// Identity は Record から秘密情報を除いたセッション用の射影を返します。
func (r *Record) Identity() Identity {
	return Identity{
		ID:       r.ID,
		Username: r.Username,
		Role:     r.Role,
	}
}

// Profile は Record から一覧表示用の射影を返します。
func (r *Record) Profile() Profile {
	return Profile{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		Role:     r.Role,
	}
}
