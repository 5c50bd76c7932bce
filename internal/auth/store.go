package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/config"
)

// NewStore はセッションストアを作成します。
// セッション本体はサーバー側に保持し、クッキーには署名付きIDのみを載せます。
func NewStore(cfg *config.Config, m *Manager) sessions.Store {
	store := memstore.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   m.MaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.IsRelease(),
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// Sessions はセッションミドルウェアを返します。
func Sessions(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(SessionCookieName, store)
}
