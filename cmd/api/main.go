// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/gatehouse/internal/auth"
	"github.com/yourusername/gatehouse/internal/config"
	applog "github.com/yourusername/gatehouse/internal/log"
	"github.com/yourusername/gatehouse/internal/middleware"
	"github.com/yourusername/gatehouse/internal/users"
	"github.com/yourusername/gatehouse/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := applog.New(cfg.GinMode)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userService, cleanup, err := setupUsers(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.SeedUsers {
		if err := userService.Seed(ctx, seedUsers(cfg)); err != nil {
			return err
		}
	}

	router, err := setupRouter(cfg, logger, userService)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("mode", cfg.GinMode).Msg("starting web server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRouter は gin のミドルウェアとルーティングの配線を行います。
func setupRouter(cfg *config.Config, logger zerolog.Logger, userService *users.Service) (*gin.Engine, error) {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	)

	if err := web.LoadTemplates(router); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// セッションストアの設定
	sessionManager := auth.NewManager(auth.Options{
		MaxLifetime: time.Duration(cfg.SessionMaxAgeMinutes) * time.Minute,
		IdleTimeout: time.Duration(cfg.SessionIdleMinutes) * time.Minute,
	})
	router.Use(auth.Sessions(auth.NewStore(cfg, sessionManager)))

	// CORSミドルウェアの設定（許可オリジンが空なら登録しない）
	if origins := splitOrigins(cfg.CORSAllowedOrigins); len(origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		router.Use(cors.New(corsConfig))
	}

	handler := web.NewHandler(userService, sessionManager, logger)
	web.SetupRoutes(router, handler, sessionManager)
	return router, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
