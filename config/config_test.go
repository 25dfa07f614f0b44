package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
jwt_secret: file-secret
database:
  driver: memory
calendar:
  feed_url: https://calendar.example.com/villa.ics
  room_feeds:
    deluxe-family: https://calendar.example.com/family.ics
  inventory_scope: property
room_types:
  - id: deluxe-double
    name: Deluxe Double Room
    rates:
      2: { without_breakfast: 50, with_breakfast: 55 }
`

func TestInitialiseFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

	cfg, err := Initialise(path, false)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "property", cfg.Calendar.InventoryScope)
	assert.Equal(t, "https://calendar.example.com/family.ics", cfg.Calendar.RoomFeeds["deluxe-family"])

	require.Len(t, cfg.RoomTypes, 1)
	assert.Equal(t, 55.0, cfg.RoomTypes[0].Rates[2].WithBreakfast)

	// Unset values fall back to their defaults.
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Calendar.Timeout())
	assert.Equal(t, "local", cfg.Lock.Driver)
}

func TestInitialiseFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Initialise("", true)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.GetRedisURL())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "EUR", cfg.Payment.Currency)
}

func TestInitialiseMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Initialise(filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
}

func TestInitialiseWorkerWithoutAPISecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("WORKER_MAX_WORKERS", "3")

	_, err := Initialise("", true)
	assert.Error(t, err)

	cfg, err := InitialiseWorker("", true)
	require.NoError(t, err)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "villa-notifications", cfg.Kafka.NotificationTopic)
	assert.Equal(t, 3, cfg.Worker.MaxWorkers)
}

func TestInitialiseWorkerIgnoresOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML+"kafka:\n  enabled: true\n"), 0o600))

	cfg, err := InitialiseWorker(path, false)
	require.NoError(t, err)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, 5, cfg.Worker.MaxWorkers)
}

func TestDatabaseURL(t *testing.T) {
	db := Database{User: "villa", Password: "pw", Host: "db", Port: "5432", DatabaseName: "villa_booking", SSLMode: "require"}
	assert.Equal(t, "postgres://villa:pw@db:5432/villa_booking?sslmode=require", db.GetDatabaseURL())
}
