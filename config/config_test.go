package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
http:
  address: ":8080"
database:
  host: localhost
  port: 5432
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldTTL())
	assert.Equal(t, 24*time.Hour, cfg.Booking.CancellationDeadline())
	assert.Equal(t, "TB", cfg.Booking.NumberPrefix)
	assert.Equal(t, 50, cfg.Booking.MaxDailyCapacity)
	assert.Equal(t, 48, cfg.Availability.LeadTimeHours)
	assert.Equal(t, 120, cfg.Availability.HorizonDays)
	assert.Equal(t, "best_fit", cfg.Availability.RankingPolicy)
	assert.Equal(t, 48*time.Hour, cfg.Availability.LeadTime())
	assert.Equal(t, time.Minute, cfg.Worker.SweepInterval())
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
booking:
  number_prefix: SEA
  max_daily_capacity: 80
availability:
  slot_minutes: 15
  ranking_policy: id_order
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "SEA", cfg.Booking.NumberPrefix)
	assert.Equal(t, 80, cfg.Booking.MaxDailyCapacity)
	assert.Equal(t, 15, cfg.Availability.SlotMinutes)
	assert.Equal(t, "id_order", cfg.Availability.RankingPolicy)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "database:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = LoadConfig(writeConfig(t, "availability:\n  min_duration_hours: 8\n  max_duration_hours: 4\n"))
	assert.ErrorContains(t, err, "min_duration_hours")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "tours", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tours sslmode=disable", d.DSN())
}
