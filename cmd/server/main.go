package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ButyrinIA/yatube/internal/config"
	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/server"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/ButyrinIA/yatube/internal/storage/memory"
	"github.com/ButyrinIA/yatube/internal/storage/postgres"
	"github.com/ButyrinIA/yatube/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	storageType := flag.String("storage", "", "тип хранилища: memory, postgres или sqlite (переопределяет конфигурацию)")
	flag.Parse()

	if *storageType != "" {
		if err := os.Setenv("STORAGE_TYPE", *storageType); err != nil {
			log.Fatalf("Не удалось применить флаг -storage: %v", err)
		}
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("Не удалось инициализировать хранилище %s: %v", cfg.Storage.Type, err)
	}
	defer store.Close()

	if err := seedGroups(ctx, store, cfg.Groups); err != nil {
		log.Fatalf("Не удалось создать группы: %v", err)
	}

	srv := server.New(cfg, store)
	log.Println("Запуск сервера")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Не удалось запустить сервер: %v", err)
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "postgres":
		log.Println("Инициализация хранилища PostgreSQL")
		return postgres.New(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	case "sqlite":
		log.Printf("Инициализация хранилища SQLite: %s", cfg.SQLite.Path)
		return sqlite.New(ctx, cfg.SQLite.Path)
	default:
		log.Println("Инициализация хранилища Memory")
		return memory.New(), nil
	}
}

// seedGroups создает группы из конфигурации. Существующие группы не меняются.
func seedGroups(ctx context.Context, store storage.Storage, seeds []config.GroupSeed) error {
	for _, seed := range seeds {
		group := &models.Group{Title: seed.Title, Slug: seed.Slug, Description: seed.Description}
		err := store.CreateGroup(ctx, group)
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
		case err != nil:
			return err
		default:
			log.Printf("Создана группа %s", group.Slug)
		}
	}
	return nil
}
