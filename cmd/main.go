package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpapi "github.com/immxrtalbeast/peercall/internal/api/http"
	"github.com/immxrtalbeast/peercall/internal/call"
	"github.com/immxrtalbeast/peercall/internal/chat"
	"github.com/immxrtalbeast/peercall/internal/chat/model"
	"github.com/immxrtalbeast/peercall/internal/config"
	"github.com/immxrtalbeast/peercall/internal/media"
	"github.com/immxrtalbeast/peercall/internal/store"
	"github.com/immxrtalbeast/peercall/internal/transport"
	"github.com/immxrtalbeast/peercall/lib/logger/slogpretty"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	messages, err := setupChatRepository(cfg.Database)
	if err != nil {
		log.Error("failed to connect database", slog.Any("error", err))
		os.Exit(1)
	}

	signalingStore := store.NewMemoryStore()
	chatChannel := chat.NewChannel(signalingStore, messages, log)

	transportFactory := transport.NewPionFactory(cfg.WebRTC.STUNServers)
	controllers := func() *call.Controller {
		return call.NewController(signalingStore, transportFactory, media.NewStaticSource(), media.NopUI{}, log)
	}

	roomController := httpapi.NewRoomController(signalingStore, chatChannel, controllers, log)
	router := httpapi.SetupRouter(roomController)

	log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func setupChatRepository(cfg config.DatabaseConfig) (chat.MessageRepository, error) {
	if cfg.DSN == "" {
		return chat.NewInMemoryMessageRepository(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(&model.ChatMessage{})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return chat.NewPostgresMessageRepository(db), nil
}
