package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/cvyl/cloudflare-websocket-livecount/config"
	"github.com/cvyl/cloudflare-websocket-livecount/counter"
	"github.com/cvyl/cloudflare-websocket-livecount/hub"
	"github.com/cvyl/cloudflare-websocket-livecount/metrics"
	"github.com/cvyl/cloudflare-websocket-livecount/protocol"
	"github.com/cvyl/cloudflare-websocket-livecount/store"
	ws "github.com/cvyl/cloudflare-websocket-livecount/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var persist counter.Persister
	if cfg.RedisAddr != "" {
		rds, err := store.NewRedis(ctx, cfg, logger)
		if err != nil {
			logger.Error("redis connect", "error", err)
			os.Exit(1)
		}
		defer rds.Close()

		if recovered, err := rds.Counts(ctx); err != nil {
			logger.Warn("count recovery failed", "error", err)
		} else if len(recovered) > 0 {
			logger.Info("recovered persisted counts", "instance", cfg.CounterName, "rooms", len(recovered))
		}
		persist = rds
	} else {
		logger.Info("persistence disabled, counts are in-memory only")
	}

	counts := counter.New(persist)
	broadcaster := hub.New()
	handler := protocol.NewHandler(broadcaster, counts, logger)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllow,
		AllowedMethods: []string{http.MethodGet},
	})

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(healthHandler))
	mux.Handle("/readyz", http.HandlerFunc(healthHandler))
	mux.Handle("/metrics", c.Handler(metrics.Handler()))
	mux.Handle("/stats", c.Handler(statsHandler(broadcaster, counts)))
	// Any other path is a WebSocket endpoint; the path is the room key.
	mux.HandleFunc("/", wsHandler(handler))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "instance", cfg.CounterName)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("server shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newLogger(env string) *slog.Logger {
	if env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func wsHandler(handler *protocol.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			http.Error(w, "Expected Upgrade: websocket", http.StatusUpgradeRequired)
			return
		}

		room := r.URL.Path
		if room == "" {
			room = "/"
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}

		ws.NewConn(room, conn, handler).Start()
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(broadcaster *hub.Hub, counts *counter.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, clients := broadcaster.Stats()
		_, total := counts.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "clients": clients, "totalVisitors": total})
	}
}
