package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/riji/backend/internal/auth"
	"github.com/zhouzirui/riji/backend/internal/config"
	"github.com/zhouzirui/riji/backend/internal/handler"
	"github.com/zhouzirui/riji/backend/internal/logging"
	"github.com/zhouzirui/riji/backend/internal/model/persona"
	"github.com/zhouzirui/riji/backend/internal/realtime"
	"github.com/zhouzirui/riji/backend/internal/scheduler"
	"github.com/zhouzirui/riji/backend/internal/service/ai"
	"github.com/zhouzirui/riji/backend/internal/service/chat"
	"github.com/zhouzirui/riji/backend/internal/service/diary"
	"github.com/zhouzirui/riji/backend/internal/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := sqlite.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	personaStore := persona.NewMemoryStore(persona.Seed())
	hub := realtime.NewHub(realtime.DefaultBuffer, logger)

	transcripts, closeStore, err := newTranscriptStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if !cfg.LLM.Enabled() {
		logger.Warn("LLM_API_KEY 未配置，对话将返回认证失败提示")
	}
	aiClient := ai.NewClient(cfg.LLM, personaStore.Default(), ai.WithLogger(logger))
	chatSvc := chat.NewService(transcripts, aiClient,
		chat.WithHistoryLimit(cfg.Chat.HistoryLimit),
		chat.WithLogger(logger),
	)

	diarySvc := diary.NewService(sqlite.NewDiaryRepository(db),
		diary.WithPublisher(hub),
		diary.WithNotFound(sqlite.ErrNotFound),
		diary.WithLogger(logger),
	)

	authSvc := auth.NewService(newAuthProvider(cfg.Auth), sqlite.NewUserRepository(db),
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		auth.WithUserNotFound(sqlite.ErrNotFound),
		auth.WithLogger(logger),
	)

	sched, err := newScheduler(cfg.Chat, chatSvc, authSvc, logger)
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.Dependencies{
		Personas: personaStore,
		Chat:     chatSvc,
		Diaries:  diarySvc,
		Auth:     authSvc,
		Hub:      hub,
		Location: time.Local,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("riji backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		return sched.Stop()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newTranscriptStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chat.TranscriptStore, func(), error) {
	if cfg.Chat.Store != "redis" {
		logger.Info("using in-memory transcript store")
		return chat.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("using redis transcript store", zap.String("addr", cfg.Redis.Addr))
	return chat.NewRedisStore(client, cfg.Chat.SessionTTL), func() { _ = client.Close() }, nil
}

func newAuthProvider(cfg config.AuthConfig) auth.Provider {
	if cfg.Provider == auth.ProviderWeChat {
		return auth.NewWeChatProvider(cfg.WeChatBaseURL, cfg.WeChatAppID, cfg.WeChatSecret, nil)
	}
	return auth.NewMockProvider()
}

func newScheduler(cfg config.ChatConfig, chatSvc *chat.Service, authSvc *auth.Service, logger *zap.Logger) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(logger)
	if err != nil {
		return nil, err
	}

	tasks := []scheduler.Task{
		{
			Name:     "prune-idle-sessions",
			Interval: cfg.PruneInterval,
			Run: func(ctx context.Context) error {
				_, err := chatSvc.PruneIdle(ctx, cfg.SessionTTL)
				return err
			},
		},
		{
			Name:     "prune-revoked-tokens",
			Interval: cfg.PruneInterval,
			Run: func(context.Context) error {
				authSvc.PruneRevoked()
				return nil
			},
		},
	}
	for _, task := range tasks {
		if err := sched.Add(task); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
