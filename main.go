package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gincol-ia/ollama-api/config"
	"github.com/gincol-ia/ollama-api/controllers"
	"github.com/gincol-ia/ollama-api/middlewares"
	"github.com/gincol-ia/ollama-api/routes"
	"github.com/gincol-ia/ollama-api/services/ollama"
	"github.com/gincol-ia/ollama-api/services/relay"
	"github.com/gincol-ia/ollama-api/sources/redisstore"
	"github.com/gincol-ia/ollama-api/utils/logging"
)

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogLevel)

	store := redisstore.New(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB, cfg.TTL())
	backend := ollama.NewClient(cfg.OllamaBaseURL)
	engine := relay.NewEngine(store, backend)

	// A store outage is not fatal; the relay keeps serving without memory.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		logging.AppLogger.Warn("redis unreachable at startup", zap.Error(err))
	}
	pingCancel()

	streamCtrl := controllers.NewStreamController(engine)
	convCtrl := controllers.NewConversationsController(store)
	modelsCtrl := controllers.NewModelsController(backend)
	healthCtrl := controllers.NewHealthController(backend, store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.RequestTimer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/", healthCtrl.Root)
	routes.RegisterStreamRoutes(r, streamCtrl)
	r.Mount("/conversations", routes.ConversationRoutes(convCtrl))
	r.Mount("/models", routes.ModelRoutes(modelsCtrl))
	r.Mount("/health", routes.HealthRoutes(healthCtrl))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
