package postgres

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func init() {
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if Docker/podman is not available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}
	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("oaigw_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(store.Close)

	return store
}

func TestPostgresGetSettingDefault(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	got, err := store.GetSetting(ctx, "does-not-exist", "fallback")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if got != "fallback" {
		t.Errorf("GetSetting = %q, want %q", got, "fallback")
	}
}

func TestPostgresGetSettingStored(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.pool.Exec(ctx,
		"INSERT INTO global_settings (key, value) VALUES ($1, $2)", "keepalive_enabled", "true"); err != nil {
		t.Fatalf("seeding global_settings: %v", err)
	}

	got, err := store.GetSetting(ctx, "keepalive_enabled", "false")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if got != "true" {
		t.Errorf("GetSetting = %q, want %q", got, "true")
	}
}

func TestPostgresGetModelsConfig(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.pool.Exec(ctx,
		"INSERT INTO model_settings (id, category, daily_quota, individual_quota) VALUES ($1, $2, $3, $4)",
		"model-pro", "standard", 1000, 10); err != nil {
		t.Fatalf("seeding model_settings: %v", err)
	}

	got, err := store.GetModelsConfig(ctx)
	if err != nil {
		t.Fatalf("GetModelsConfig failed: %v", err)
	}
	m, ok := got["model-pro"]
	if !ok {
		t.Fatalf("expected model-pro in result, got %v", got)
	}
	if m.Category != "standard" || m.DailyQuota == nil || *m.DailyQuota != 1000 {
		t.Errorf("unexpected ModelSetting: %+v", m)
	}
}

func TestPostgresGetWorkerKeySafetySetting(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	hash := hashAPIKey("sk-test-key")
	if _, err := store.pool.Exec(ctx,
		"INSERT INTO worker_key_policy (api_key_hash, safety_filtering_off) VALUES ($1, $2)",
		hash, true); err != nil {
		t.Fatalf("seeding worker_key_policy: %v", err)
	}

	off, err := store.GetWorkerKeySafetySetting(ctx, "sk-test-key")
	if err != nil {
		t.Fatalf("GetWorkerKeySafetySetting failed: %v", err)
	}
	if !off {
		t.Errorf("GetWorkerKeySafetySetting = false, want true")
	}

	off, err = store.GetWorkerKeySafetySetting(ctx, "sk-unknown-key")
	if err != nil {
		t.Fatalf("GetWorkerKeySafetySetting failed: %v", err)
	}
	if off {
		t.Errorf("GetWorkerKeySafetySetting for unknown key = true, want false")
	}
}
