// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	// StoreMemory はプロセス内メモリに保存するバックエンドです。
	StoreMemory = "memory"
	// StoreRedis は Redis に保存するバックエンドです（ユーザーストア用）。
	StoreRedis = "redis"

	releaseMode = "release"

	devSessionSecret = "gatehouse-development-session-secret!!"
	minSecretLength  = 32
)

// SeedUser は起動時に投入する初期ユーザーの設定です。
type SeedUser struct {
	Username string
	Email    string
	Password string
	Role     string
}

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // HTTPサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// セッション設定
	SessionSecret        string // セッション署名用の秘密鍵
	SessionStore         string // memory のみ（セッション本体はサーバー側に置く）
	SessionMaxAgeMinutes int    // セッションの最大寿命（分）
	SessionIdleMinutes   int    // 無操作タイムアウト（分）

	// ユーザーストア設定
	UserStore string // memory または redis
	RedisURL  string // Redis接続URL

	// パスワードハッシュ設定
	BcryptCost      int // bcryptのコスト
	HashConcurrency int // 同時に実行するハッシュ計算の上限

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// 初期ユーザー
	SeedUsers bool
	Seeds     []SeedUser
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	ginMode := getEnv("GIN_MODE", "debug")
	config := &Config{
		Port:    getEnv("PORT", "3000"),
		GinMode: ginMode,

		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionStore:         strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		SessionMaxAgeMinutes: getEnvAsInt("SESSION_MAX_AGE_MINUTES", 12*60),
		SessionIdleMinutes:   getEnvAsInt("SESSION_IDLE_MINUTES", 30),

		UserStore: strings.ToLower(getEnv("USER_STORE", StoreMemory)),
		RedisURL:  getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		BcryptCost:      getEnvAsInt("BCRYPT_COST", 10),
		HashConcurrency: getEnvAsInt("HASH_CONCURRENCY", 4),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		SeedUsers: getEnvAsBool("SEED_USERS", ginMode != releaseMode),
		Seeds: []SeedUser{
			{
				Username: getEnv("SEED_ADMIN_USERNAME", "AdminUser"),
				Email:    getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
				Password: getEnv("SEED_ADMIN_PASSWORD", defaultAdminPassword),
				Role:     "admin",
			},
			{
				Username: getEnv("SEED_USER_USERNAME", "RegularUser"),
				Email:    getEnv("SEED_USER_EMAIL", "user@example.com"),
				Password: getEnv("SEED_USER_PASSWORD", defaultUserPassword),
				Role:     "user",
			},
		},
	}

	// 開発環境では固定の秘密鍵で起動できるようにする
	if config.SessionSecret == "" && ginMode != releaseMode {
		config.SessionSecret = devSessionSecret
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

const (
	defaultAdminPassword = "admin123"
	defaultUserPassword  = "user123"
)

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// IsRelease は本番モードで起動しているかを返します。
func (c *Config) IsRelease() bool {
	return c.GinMode == releaseMode
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.HashConcurrency <= 0 {
		return fmt.Errorf("HASH_CONCURRENCY must be positive")
	}

	// ログアウト後のクッキー再利用を防げないため、クッキー内にセッションを持つ方式は受け付けない
	if c.SessionStore != StoreMemory {
		return fmt.Errorf("SESSION_STORE must be %q", StoreMemory)
	}

	switch c.UserStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when USER_STORE=redis")
		}
	default:
		return fmt.Errorf("USER_STORE must be %q or %q", StoreMemory, StoreRedis)
	}

	if c.SessionMaxAgeMinutes <= 0 || c.SessionIdleMinutes <= 0 {
		return fmt.Errorf("session lifetimes must be positive")
	}

	// 本番環境では厳格にチェックする
	if c.IsRelease() {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < minSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d bytes in release mode", minSecretLength)
		}
		if c.SeedUsers {
			for _, seed := range c.Seeds {
				if seed.Password == defaultAdminPassword || seed.Password == defaultUserPassword {
					return fmt.Errorf("seed user %s uses a default password in release mode", seed.Email)
				}
			}
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
