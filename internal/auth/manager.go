// Package auth はセッションによる認証状態の管理を提供します。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	gsessions "github.com/gorilla/sessions"

	"github.com/yourusername/gatehouse/internal/users"
)

const (
	SessionCookieName    = "gh_session"
	sessionKeyUserID     = "user_id"
	sessionKeyUsername   = "username"
	sessionKeyRole       = "role"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
)

var (
	defaultMaxLifetime = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
)

// Options はセッションの寿命に関する設定です。ゼロ値は既定値になります。
type Options struct {
	MaxLifetime time.Duration
	IdleTimeout time.Duration
}

// Manager はセッションと認証済みユーザーの結び付けを管理します。
type Manager struct {
	maxLifetime time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewManager はセッションマネージャーを作成します。
func NewManager(opts Options) *Manager {
	m := &Manager{
		maxLifetime: opts.MaxLifetime,
		idleTimeout: opts.IdleTimeout,
		now:         time.Now,
	}
	if m.maxLifetime <= 0 {
		m.maxLifetime = defaultMaxLifetime
	}
	if m.idleTimeout <= 0 {
		m.idleTimeout = defaultIdleTimeout
	}
	return m
}

// MaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func (m *Manager) MaxAgeSeconds() int {
	return int(m.maxLifetime.Seconds())
}

// Establish は新しいセッションIDを発行してユーザーを結び付けます。
// ログイン前のセッションはストアから削除されます。
func (m *Manager) Establish(c *gin.Context, identity users.Identity) error {
	if identity.ID <= 0 || !identity.Role.Valid() {
		return errors.New("invalid identity")
	}

	session := sessions.Default(c)
	if err := rotate(session); err != nil {
		return err
	}
	session.Clear()

	now := m.now().Unix()
	session.Set(sessionKeyUserID, identity.ID)
	session.Set(sessionKeyUsername, identity.Username)
	session.Set(sessionKeyRole, string(identity.Role))
	session.Set(sessionKeyIssuedAt, now)
	session.Set(sessionKeyLastActive, now)

	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	c.Set(ContextIdentityKey, identity)
	return nil
}

// gin-contrib/sessions の実装が公開している下位のセッション
type rawSession interface {
	Session() *gsessions.Session
}

// rotate は既存のセッションをストアから削除し、次の保存で新しいIDが採番されるようにします。
func rotate(session sessions.Session) error {
	raw, ok := session.(rawSession)
	if !ok {
		return errors.New("session store does not support id rotation")
	}
	s := raw.Session()
	if s == nil || s.ID == "" {
		return nil
	}

	opts := s.Options
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to discard previous session: %w", err)
	}

	s.ID = ""
	s.IsNew = true
	s.Options = opts
	return nil
}

// Destroy はセッションを無効化します。戻った時点でストアからも削除されています。
func (m *Manager) Destroy(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// Current はセッションに結び付いたユーザーを返します。
// 期限切れのセッションは破棄され、未ログインとして扱われます。
func (m *Manager) Current(c *gin.Context) (users.Identity, bool) {
	session := sessions.Default(c)

	id := readInt64(session.Get(sessionKeyUserID))
	if id <= 0 {
		return users.Identity{}, false
	}
	username, _ := session.Get(sessionKeyUsername).(string)
	role, _ := session.Get(sessionKeyRole).(string)
	identity := users.Identity{
		ID:       id,
		Username: username,
		Role:     users.Role(role),
	}
	if !identity.Role.Valid() {
		_ = m.Destroy(c)
		return users.Identity{}, false
	}

	now := m.now()
	issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
	lastActive := readUnix(session.Get(sessionKeyLastActive))

	if issuedAt.IsZero() || now.Sub(issuedAt) > m.maxLifetime {
		_ = m.Destroy(c)
		return users.Identity{}, false
	}
	if lastActive.IsZero() || now.Sub(lastActive) > m.idleTimeout {
		_ = m.Destroy(c)
		return users.Identity{}, false
	}

	session.Set(sessionKeyLastActive, now.Unix())
	_ = session.Save()
	c.Set(ContextIdentityKey, identity)
	return identity, true
}

func readInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func readUnix(v interface{}) time.Time {
	sec := readInt64(v)
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
