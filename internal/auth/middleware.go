package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/users"
)

// ContextIdentityKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextIdentityKey = "auth.identity"

// LoginPath は未ログイン時のリダイレクト先です。
const LoginPath = "/login"

// RequireLogin はログインしていなければ LoginPath へリダイレクトするミドルウェアを返します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := m.Current(c)
		if !ok {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom は RequireLogin が設定したユーザーを取り出します。
func IdentityFrom(c *gin.Context) (users.Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return users.Identity{}, false
	}
	identity, ok := v.(users.Identity)
	return identity, ok
}
