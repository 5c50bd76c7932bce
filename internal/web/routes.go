package web

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/auth"
)

// SetupRoutes は画面系のルーティングを登録します。
// セッションミドルウェアは呼び出し側で先に登録しておく必要があります。
func SetupRoutes(router *gin.Engine, h *Handler, sessions *auth.Manager) {
	router.GET("/health", h.Health)
	router.StaticFS("/static", StaticFS())

	router.GET("/", h.Index)

	router.GET("/login", h.LoginPage)
	router.POST("/login", h.Login)
	router.GET("/signup", h.SignupPage)
	router.POST("/signup", h.Signup)
	router.GET("/logout", h.Logout)

	router.GET("/landing", sessions.RequireLogin(), h.Landing)
}
