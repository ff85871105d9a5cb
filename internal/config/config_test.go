package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unsetenv clears keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error without JWT_SECRET")
	}
}

func TestLoadFromEnv(t *testing.T) {
	unsetenv(t, "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "INVITE_TTL")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.JWTSecret != "s3cret" || cfg.DBDriver != "sqlite" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("RefreshTokenTTL = %v, want default", cfg.RefreshTokenTTL)
	}
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	unsetenv(t, "ACCESS_TOKEN_TTL", "INVITE_TTL")
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("REFRESH_TOKEN_TTL", "a week")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an invalid duration")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "port: \"9000\"\njwt_secret: from-file\ntimezone: UTC\ninvite_ttl: 48h\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	unsetenv(t, "JWT_SECRET", "TIMEZONE", "INVITE_TTL", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.JWTSecret != "from-file" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.Port != "9100" {
		t.Errorf("Port = %q, env should win", cfg.Port)
	}
	if cfg.InviteTTL != 48*time.Hour {
		t.Errorf("InviteTTL = %v", cfg.InviteTTL)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location = %v", cfg.Location())
	}
}
