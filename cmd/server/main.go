package main

import (
	"context"
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/chiptally/chiptally/internal/auth"
	"github.com/chiptally/chiptally/internal/cache"
	"github.com/chiptally/chiptally/internal/config"
	"github.com/chiptally/chiptally/internal/database"
	"github.com/chiptally/chiptally/internal/handlers"
	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/middleware"
	"github.com/chiptally/chiptally/internal/registry"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	if err := auth.Init(cfg.TokenExpire); err != nil {
		logger.Fatalf("auth: %v", err)
	}

	var store ledger.Store
	switch cfg.Store {
	case "memory":
		store = database.NewMemoryStore()
		logger.Warn("using in-memory store; ledger state will not survive a restart")
	default:
		pg, err := database.Connect(context.Background(), cfg.PostgresDSN())
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pg.Close()
		store = pg
		logger.Infof("connected to postgres at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
	}

	var snapshots *cache.Snapshots
	if cfg.RedisAddr != "" {
		snapshots, err = cache.Connect(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		logger.Infof("snapshot cache enabled at %s", cfg.RedisAddr)
	}

	srv := handlers.New(logger, store, ledger.NewService(store, logger), registry.NewRegistry(), snapshots)

	logmw := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()
	mux.Handle("/room/create", logmw(http.HandlerFunc(srv.CreateRoomHandler)))
	mux.Handle("/room/join", logmw(http.HandlerFunc(srv.JoinRoomHandler)))
	mux.Handle("/room/ws/", logmw(srv.RoomWSHandler()))
	mux.Handle("/room/", logmw(http.HandlerFunc(srv.RoomStateHandler)))

	addr := ":" + cfg.Port
	logger.Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
