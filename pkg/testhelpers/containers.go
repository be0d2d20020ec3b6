// Package testhelpers provides a shared PostgreSQL container for
// integration tests. Tests using it must be guarded with the integration
// build tag or testing.Short.
package testhelpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/schemalens/schemalens-engine/pkg/database"
)

// MetadataStoreImage is the PostgreSQL image used for integration tests.
const MetadataStoreImage = "postgres:16-alpine"

// MetadataDB holds a shared test container with the lens_ tables created.
type MetadataDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	sharedMetadataDB     *MetadataDB
	sharedMetadataDBOnce sync.Once
	sharedMetadataDBErr  error
)

// GetMetadataDB returns a shared PostgreSQL container with migrations
// applied. The container is created once and reused across all tests in
// the run.
func GetMetadataDB(t *testing.T) *MetadataDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMetadataDBOnce.Do(func() {
		sharedMetadataDB, sharedMetadataDBErr = setupMetadataDB()
	})

	if sharedMetadataDBErr != nil {
		t.Fatalf("Failed to setup metadata database: %v", sharedMetadataDBErr)
	}

	return sharedMetadataDB
}

func setupMetadataDB() (*MetadataDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        MetadataStoreImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "schemalens_test",
			"POSTGRES_USER":     "schemalens",
			"POSTGRES_PASSWORD": "test_password",
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
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://schemalens:test_password@%s:%s/schemalens_test?sslmode=disable",
		host, port.Port())

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	db := &database.DB{Pool: pool}
	if err := applyMigrations(ctx, db); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &MetadataDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}

// applyMigrations executes the repository's migrations in lexical order.
func applyMigrations(ctx context.Context, db *database.DB) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		ddl, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// migrationsDir walks upward from the working directory until it finds the
// migrations directory, so tests in any package resolve it.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory not found above %s", dir)
		}
		dir = parent
	}
}

// TruncateAll clears every lens_ table between test cases.
func TruncateAll(ctx context.Context, t *testing.T, db *database.DB) {
	t.Helper()

	tables := []string{
		"lens_table_metadata",
		"lens_column_metadata",
		"lens_business_glossary",
		"lens_fk_relationships",
	}
	for _, table := range tables {
		if _, err := db.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
}
