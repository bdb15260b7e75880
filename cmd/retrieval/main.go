package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/config"
	dbRedis "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/db/redis"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
	logpkg "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/logger"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/metrics"
	accessrepo "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/repository/access"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/repository/embcache"
	vectorrepo "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/repository/vector"
	chiTransport "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/transport/chi"
	openaiEmb "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/transport/openai"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/transport/rerank"
	retrievaluc "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/usecase/retrieval"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting retrieval API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	// Build embedder chain — composition root
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = embcache.New(base, store, embcache.Config{
		Model:         cfg.Embedding.Model,
		KeyPrefix:     cfg.Database.KeyPrefix,
		MemoryEntries: cfg.Cache.MemoryEntries,
		TTL:           time.Duration(cfg.Cache.TTLHours) * time.Hour,
		CacheTotal:    metrics.EmbeddingCacheTotal,
		Logger:        logger,
	})

	// Instruction prefix (outermost — cache key includes the instruction)
	if cfg.Embedding.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Cross-encoder is optional; nil disables the rerank stage.
	var encoder retrievaluc.CrossEncoder
	if cfg.Rerank.Enabled {
		encoder = rerank.NewClient(&rerank.Config{
			BaseURL: cfg.Rerank.BaseURL,
			APIKey:  cfg.Rerank.APIKey,
			Model:   cfg.Rerank.Model,
			Logger:  logger,
		})
		logger.Info("Cross-encoder enabled", zap.String("model", cfg.Rerank.Model))
	}

	// Repositories
	chunkStore := vectorrepo.New(store, cfg.Search.IndexName)
	accessResolver := accessrepo.New(store, cfg.Database.KeyPrefix, logger)

	// Retrieval service
	retrievalSvc := retrievaluc.New(
		embedder,
		chunkStore,
		chunkStore,
		encoder,
		accessResolver,
		retrievaluc.Config{
			HybridAlpha:      cfg.Search.HybridAlpha,
			RerankWeight:     cfg.Rerank.Weight,
			Overfetch:        cfg.Search.Overfetch,
			MaxChunksPerFile: cfg.Search.MaxChunksPerFile,
			StageTimeout:     time.Duration(cfg.Search.StageTimeoutMS) * time.Millisecond,
		},
		logger,
	)

	server := chiTransport.NewServer(retrievalSvc, store, base, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
