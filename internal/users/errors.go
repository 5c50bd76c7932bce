package users

import "errors"

var (
	// ErrNotFound は指定したメールアドレスのユーザーが存在しないことを表します。
	ErrNotFound = errors.New("user not found")
	// ErrAuthFailure はメールアドレスまたはパスワードが正しくないことを表します。
	// 未登録とパスワード不一致を区別しません。
	ErrAuthFailure = errors.New("invalid email or password")
	// ErrDuplicateEmail は登録済みのメールアドレスで登録しようとしたことを表します。
	ErrDuplicateEmail = errors.New("email is already registered")
)
