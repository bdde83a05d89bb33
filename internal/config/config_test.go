package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CRATEVAULT_SESSION_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.DSN != "" {
		t.Fatalf("DSN = %q", cfg.DSN)
	}
	if cfg.RateBurst != 20 || cfg.RatePerSec != 10 {
		t.Fatalf("rate defaults: %d/%d", cfg.RateBurst, cfg.RatePerSec)
	}
	if cfg.MaxPublishBytes != 16<<20 {
		t.Fatalf("MaxPublishBytes = %d", cfg.MaxPublishBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CRATEVAULT_SESSION_SECRET", "s3cret")
	t.Setenv("CRATEVAULT_ADDR", ":9090")
	t.Setenv("CRATEVAULT_BASE_URL", "https://crates.example.com/")
	t.Setenv("CRATEVAULT_RATE_BURST", "5")
	t.Setenv("CRATEVAULT_MAX_PUBLISH_BYTES", "1048576")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	// trailing slash is stripped so URL joins stay clean
	if cfg.BaseURL != "https://crates.example.com" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.RateBurst != 5 {
		t.Fatalf("RateBurst = %d", cfg.RateBurst)
	}
	if cfg.MaxPublishBytes != 1<<20 {
		t.Fatalf("MaxPublishBytes = %d", cfg.MaxPublishBytes)
	}
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("CRATEVAULT_SESSION_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("missing secret accepted")
	}
}

func TestLoadRejectsBadInteger(t *testing.T) {
	t.Setenv("CRATEVAULT_SESSION_SECRET", "s3cret")
	t.Setenv("CRATEVAULT_RATE_BURST", "lots")
	if _, err := Load(); err == nil {
		t.Fatal("non-integer accepted")
	}
}
