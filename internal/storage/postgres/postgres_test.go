package postgres

import (
	"context"
	"testing"

	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/ButyrinIA/yatube/internal/storage/storagetest"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропуск теста с контейнером PostgreSQL в режиме -short")
	}

	// Запуск тестового контейнера PostgreSQL
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "user",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "yatube",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Не удалось запустить контейнер PostgreSQL: %v", err)
	}
	defer postgresC.Terminate(ctx)

	// Получение DSN
	host, err := postgresC.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить хост контейнера: %v", err)
	}
	port, err := postgresC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить порт контейнера: %v", err)
	}
	dsn := "postgres://user:password@" + host + ":" + port.Port() + "/yatube?sslmode=disable"

	// Инициализация хранилища
	store, err := New(ctx, dsn, 10)
	if err != nil {
		t.Fatalf("Не удалось инициализировать PostgresStorage: %v", err)
	}
	defer store.Close()

	// Повторный запуск схемы не должен падать
	again, err := New(ctx, dsn, 2)
	if err != nil {
		t.Fatalf("Повторная инициализация схемы завершилась ошибкой: %v", err)
	}
	again.Close()

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return store
	})
}
