package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/gatehouse/internal/auth"
)

// Logger はリクエストごとに1行のアクセスログを出力します。
// ログイン済みのリクエストには user_id と role を付けます。静的ファイルとヘルスチェックは debug に落とします。
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		event := accessEvent(log, c.Request.URL.Path, status)
		if !event.Enabled() {
			return
		}

		event = event.
			Str("request_id", c.GetString(RequestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if route := c.FullPath(); route != "" && route != c.Request.URL.Path {
			event = event.Str("route", route)
		}
		if identity, ok := auth.IdentityFrom(c); ok {
			event = event.Int64("user_id", identity.ID).Str("role", string(identity.Role))
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.Msg("http request")
	}
}

func accessEvent(log zerolog.Logger, path string, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return log.Error()
	case status >= 400:
		return log.Warn()
	case path == "/health" || strings.HasPrefix(path, "/static/"):
		return log.Debug()
	default:
		return log.Info()
	}
}
