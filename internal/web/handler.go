package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/gatehouse/internal/auth"
	"github.com/yourusername/gatehouse/internal/middleware"
	"github.com/yourusername/gatehouse/internal/users"
)

// 画面に表示するメッセージ
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgDuplicateEmail     = "Email is already registered"
	MsgGenericFailure     = "Something went wrong. Please try again."
	MsgMissingFields      = "Please fill in all fields."
	MsgPasswordTooLong    = "Password must be at most 72 bytes."
)

const (
	pathRoot    = "/"
	pathLanding = "/landing"
	pathLogin   = auth.LoginPath
)

// Handler は画面系エンドポイントのハンドラーをまとめた構造体です。
type Handler struct {
	users    *users.Service
	sessions *auth.Manager
	logger   zerolog.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(svc *users.Service, sessions *auth.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		users:    svc,
		sessions: sessions,
		logger:   logger.With().Str("component", "web").Logger(),
	}
}

// Index は GET / のハンドラーです。
func (h *Handler) Index(c *gin.Context) {
	if _, ok := h.sessions.Current(c); ok {
		c.Redirect(http.StatusFound, pathLanding)
		return
	}
	c.HTML(http.StatusOK, "index.html", page("Home"))
}

// LoginPage は GET /login のハンドラーです。
func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", page("Log in"))
}

// Login は POST /login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	identity, err := h.users.Verify(c.Request.Context(), email, password)
	if err != nil {
		data := page("Log in")
		data["Email"] = email
		if errors.Is(err, users.ErrAuthFailure) {
			data["Error"] = MsgInvalidCredentials
			c.HTML(http.StatusUnauthorized, "login.html", data)
			return
		}
		h.requestLogger(c).Error().Err(err).Msg("login failed")
		data["Error"] = MsgGenericFailure
		c.HTML(http.StatusInternalServerError, "login.html", data)
		return
	}

	if err := h.sessions.Establish(c, identity); err != nil {
		h.requestLogger(c).Error().Err(err).Int64("user_id", identity.ID).Msg("failed to establish session")
		data := page("Log in")
		data["Error"] = MsgGenericFailure
		c.HTML(http.StatusInternalServerError, "login.html", data)
		return
	}

	h.requestLogger(c).Info().Int64("user_id", identity.ID).Str("role", string(identity.Role)).Msg("user logged in")
	c.Redirect(http.StatusFound, pathLanding)
}

// SignupPage は GET /signup のハンドラーです。
func (h *Handler) SignupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", page("Sign up"))
}

type signupForm struct {
	Username string `form:"username" binding:"required"`
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Signup は POST /signup のハンドラーです。ロールを指定するフィールドは受け付けません。
func (h *Handler) Signup(c *gin.Context) {
	var form signupForm
	bindErr := c.ShouldBind(&form)

	data := page("Sign up")
	data["Username"] = form.Username
	data["Email"] = form.Email

	if bindErr != nil || strings.TrimSpace(form.Username) == "" || strings.TrimSpace(form.Email) == "" {
		data["Error"] = MsgMissingFields
		c.HTML(http.StatusBadRequest, "signup.html", data)
		return
	}

	_, err := h.users.Register(c.Request.Context(), form.Username, form.Email, form.Password)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, pathLogin)
	case errors.Is(err, users.ErrDuplicateEmail):
		data["Error"] = MsgDuplicateEmail
		c.HTML(http.StatusConflict, "signup.html", data)
	case errors.Is(err, users.ErrPasswordTooLong):
		data["Error"] = MsgPasswordTooLong
		c.HTML(http.StatusBadRequest, "signup.html", data)
	default:
		h.requestLogger(c).Error().Err(err).Str("email", form.Email).Msg("registration failed")
		data["Error"] = MsgGenericFailure
		c.HTML(http.StatusInternalServerError, "signup.html", data)
	}
}

// Logout は GET /logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c); err != nil {
		h.requestLogger(c).Error().Err(err).Msg("failed to destroy session")
		c.String(http.StatusInternalServerError, MsgGenericFailure)
		return
	}
	c.Redirect(http.StatusFound, pathRoot)
}

// Landing は GET /landing のハンドラーです。RequireLogin の後ろで使います。
// 管理者には全ユーザーを、一般ユーザーには本人の情報のみを表示します。
func (h *Handler) Landing(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.Redirect(http.StatusFound, pathLogin)
		return
	}

	data := page("Dashboard")
	data["User"] = identity

	if identity.IsAdmin() {
		profiles, err := h.users.List(c.Request.Context())
		if err != nil {
			h.requestLogger(c).Error().Err(err).Msg("failed to list users")
			c.String(http.StatusInternalServerError, MsgGenericFailure)
			return
		}
		data["Users"] = profiles
	}

	c.HTML(http.StatusOK, "landing.html", data)
}

// Health はヘルスチェックエンドポイントのハンドラーです。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "gatehouse",
	})
}

func (h *Handler) requestLogger(c *gin.Context) *zerolog.Logger {
	logger := h.logger.With().Str("request_id", c.GetString(middleware.RequestIDHeader)).Logger()
	return &logger
}
