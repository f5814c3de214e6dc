package postgres_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/aretw0/ussdgw/internal/storage/postgres"
	"github.com/aretw0/ussdgw/internal/storage/postgres/migrations"
	"github.com/aretw0/ussdgw/pkg/ports"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testDB is nil when no container runtime is available.
var testDB *postgres.DB

func TestMain(m *testing.M) {
	ctx := context.Background()
	cleanup, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres tests skipped: %v\n", err)
	}
	code := m.Run()
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}

func setup(ctx context.Context) (func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "ussd",
			"POSTGRES_PASSWORD": "ussd",
			"POSTGRES_DB":       "ussd",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}
	cleanup := func() { _ = container.Terminate(ctx) }

	host, err := container.Host(ctx)
	if err != nil {
		return cleanup, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return cleanup, err
	}

	dsn := fmt.Sprintf("postgres://ussd:ussd@%s:%s/ussd?sslmode=disable", host, port.Port())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := postgres.New(ctx, dsn, logger)
	if err != nil {
		return cleanup, err
	}
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		db.Close()
		return cleanup, err
	}
	// A second run must be a no-op.
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		db.Close()
		return cleanup, err
	}

	testDB = db
	return func() {
		db.Close()
		cleanup()
	}, nil
}

func requireDB(t *testing.T) *postgres.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("no container runtime available")
	}
	return testDB
}

func TestUserRepository(t *testing.T) {
	db := requireDB(t)
	ports.RunUserRepositoryContract(t, db)
}

func TestShipmentRepository(t *testing.T) {
	db := requireDB(t)
	ports.RunShipmentRepositoryContract(t, db)
}

func TestPing(t *testing.T) {
	db := requireDB(t)
	require.NoError(t, db.Ping(context.Background()))
}
