package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/mindchat/backend/internal/config"
	"github.com/zhouzirui/mindchat/backend/internal/handler"
	"github.com/zhouzirui/mindchat/backend/internal/middleware"
	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	htmlrender "github.com/zhouzirui/mindchat/backend/internal/render/html"
	"github.com/zhouzirui/mindchat/backend/internal/service/assistant"
	"github.com/zhouzirui/mindchat/backend/internal/service/chat"
	"github.com/zhouzirui/mindchat/backend/internal/service/turn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn("failed to load .env file, continuing with system environment variables only", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "err", err)
	}
	setLogLevel(cfg.LogLevel)

	client, err := assistant.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize assistant", "provider", cfg.Assistant.Provider, "err", err)
	}
	processor := turn.NewProcessor(client, turn.WithTimeout(cfg.Assistant.Timeout))

	store, closeStore, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		log.Fatal("failed to initialize session store", "store", cfg.Session.Store, "err", err)
	}
	defer closeStore()

	modeStore := mode.NewMemoryStore(mode.Seed())
	chatService := chat.NewService(store, modeStore, processor)

	opts := handler.Options{SessionTTL: cfg.Session.TTL}
	if cfg.RateLimit.RPS > 0 {
		opts.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	router := handler.NewRouter(chatService, htmlrender.New(), opts)

	startServer(ctx, cfg.Server, router)
}

func setLogLevel(raw string) {
	level, err := log.ParseLevel(raw)
	if err != nil {
		log.Warn("unknown LOG_LEVEL, keeping info", "value", raw)
		return
	}
	log.SetLevel(level)
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig) (chat.Store, func(), error) {
	if cfg.Store != config.StoreRedis {
		log.Info("session store ready", "store", config.StoreMemory)
		return chat.NewMemoryStore(cfg.TTL), func() {}, nil
	}

	client, err := chat.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("session store ready", "store", config.StoreRedis, "ttl", cfg.TTL)
	return chat.NewRedisStore(client, cfg.TTL), func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close redis client", "err", err)
		}
	}, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("mindchat backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", "err", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
