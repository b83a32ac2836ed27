package config

import (
	"testing"
	"time"
)

func TestLoadLocal(t *testing.T) {
	t.Setenv("CONFIG_DIR", ".")
	t.Setenv("CONFIG_ENV", "local")
	t.Setenv("TZ", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Log.Format != "console" {
		t.Fatalf("local layer not applied: %+v %+v", cfg.Store, cfg.Log)
	}
	if cfg.Tasks.TransitionMode != "strict" || cfg.JWT.TTL != 24*time.Hour {
		t.Fatalf("base values missing: %+v %+v", cfg.Tasks, cfg.JWT)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("expected redis disabled locally, got %q", cfg.Redis.Addr)
	}
}

func TestStoreDriverOverride(t *testing.T) {
	t.Setenv("CONFIG_DIR", ".")
	t.Setenv("CONFIG_ENV", "local")
	t.Setenv("STORE_DRIVER", "sheets")
	t.Setenv("SHEET_ID", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected sheets driver without spreadsheet id to fail validation")
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	cfg.App.Timezone = "Europe/Berlin"
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Fatalf("location: %v %v", loc, err)
	}

	cfg.App.Timezone = "Mars/Olympus"
	if _, err := cfg.Location(); err == nil {
		t.Fatal("expected invalid timezone error")
	}
}
