package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGIN", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "SHOP_NAME", "BARCODE_CACHE_TTL_SECONDS", "AUTH_SECRET", "ACCESS_TOKEN_TTL_MINUTES",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected address :8080, got %q", cfg.Address())
	}
	if cfg.ShopName != "Phone Shop" {
		t.Fatalf("expected default shop name, got %q", cfg.ShopName)
	}
	if cfg.BarcodeCacheTTLSeconds != 60 || cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("unexpected ttl defaults %+v", cfg)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SHOP_NAME", "Mirpur Mobile Point")
	t.Setenv("BARCODE_CACHE_TTL_SECONDS", "120")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AUTH_SECRET", "  spaced-secret  ")

	cfg := Load()
	if cfg.Port != "9090" || cfg.ShopName != "Mirpur Mobile Point" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.BarcodeCacheTTLSeconds != 120 || cfg.AccessTokenTTLMinutes != 60 || cfg.RedisDB != 3 {
		t.Fatalf("unexpected numeric config %+v", cfg)
	}
	if cfg.AuthSecret != "spaced-secret" {
		t.Fatalf("expected trimmed auth secret, got %q", cfg.AuthSecret)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("BARCODE_CACHE_TTL_SECONDS", "not-a-number")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	if cfg.BarcodeCacheTTLSeconds != 60 {
		t.Fatalf("expected ttl fallback 60, got %d", cfg.BarcodeCacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token ttl fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}
