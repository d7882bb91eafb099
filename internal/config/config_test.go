package config

import (
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "testhost")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("SNAPSHOT_GENESIS_TIMESTAMP", "1607904000")
	t.Setenv("SNAPSHOT_ROLLING_MODE", "additive")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}

	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host = %v, want %v", cfg.Database.Postgres.Host, "testhost")
	}

	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Cache.TTL = %v, want %v", cfg.Cache.TTL, 30*time.Second)
	}

	if cfg.Snapshot.GenesisTimestamp != 1607904000 {
		t.Errorf("Snapshot.GenesisTimestamp = %v, want %v", cfg.Snapshot.GenesisTimestamp, 1607904000)
	}

	if cfg.Snapshot.DayLength != 86400 {
		t.Errorf("Snapshot.DayLength = %v, want %v", cfg.Snapshot.DayLength, 86400)
	}

	if cfg.Snapshot.RollingMode != "additive" {
		t.Errorf("Snapshot.RollingMode = %v, want %v", cfg.Snapshot.RollingMode, "additive")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "zero day length", key: "SNAPSHOT_DAY_LENGTH", val: "0"},
		{name: "negative day length", key: "SNAPSHOT_DAY_LENGTH", val: "-5"},
		{name: "unknown rolling mode", key: "SNAPSHOT_ROLLING_MODE", val: "sliding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig() with %s=%s should fail", tt.key, tt.val)
			}
		})
	}
}

func TestPostgresConfig_URL(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5433", Database: "snaps", User: "u", Password: "p"}
	want := "postgres://u:p@db:5433/snaps?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Errorf("URL() = %v, want %v", got, want)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "TEST_KEY_UNSET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt64(t *testing.T) {
	t.Setenv("TEST_INT64", "1700000000")
	if got := getEnvAsInt64("TEST_INT64", 0); got != 1700000000 {
		t.Errorf("getEnvAsInt64() = %v, want %v", got, 1700000000)
	}

	t.Setenv("TEST_INT64_BAD", "nope")
	if got := getEnvAsInt64("TEST_INT64_BAD", 7); got != 7 {
		t.Errorf("getEnvAsInt64() = %v, want %v", got, 7)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "5m")
	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 5*time.Minute {
		t.Errorf("getEnvAsDuration() = %v, want %v", got, 5*time.Minute)
	}
	if got := getEnvAsDuration("TEST_DURATION_UNSET", time.Second); got != time.Second {
		t.Errorf("getEnvAsDuration() = %v, want %v", got, time.Second)
	}
}
