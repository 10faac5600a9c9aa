package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DEV_MODE", "true")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "")
	t.Setenv("MEDIA_STORAGE_PATH", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseDriver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.DatabaseDriver)
	}
	if cfg.LoginMaxAttempts != defaultLoginMaxAttempts {
		t.Fatalf("expected %d login attempts, got %d", defaultLoginMaxAttempts, cfg.LoginMaxAttempts)
	}
	if cfg.LoginCooldown != 15*time.Minute {
		t.Fatalf("expected 15m cooldown, got %s", cfg.LoginCooldown)
	}
	if cfg.JWTSecret != devJWTSecret {
		t.Fatalf("expected dev secret in dev mode")
	}
	if filepath.Base(cfg.PortraitsPath) != DefaultPortraitsSubDir {
		t.Fatalf("unexpected portraits path %q", cfg.PortraitsPath)
	}
	if got := cfg.DataSource(); got != "genealogy.db?_foreign_keys=on" {
		t.Fatalf("unexpected data source %q", got)
	}
}

func TestLoadConfig_RequiresSecretOutsideDevMode(t *testing.T) {
	t.Setenv("DEV_MODE", "")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoadConfig_PostgresNeedsDSN(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_DSN")
	}
}

func TestLoadConfig_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "-3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LoginMaxAttempts != defaultLoginMaxAttempts {
		t.Fatalf("expected fallback to default, got %d", cfg.LoginMaxAttempts)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := SQLiteDSN("file:x?mode=memory"); got != "file:x?mode=memory&_foreign_keys=on" {
		t.Fatalf("unexpected dsn %q", got)
	}
}
