package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("GEOIP_DB_PATH", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.GeminiModel != "gemini-2.5-flash-image" {
		t.Fatalf("GeminiModel mismatch: got %q", cfg.GeminiModel)
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("GeminiAPIKey should be empty, got %q", cfg.GeminiAPIKey)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL mismatch: got %s", cfg.SessionTTL)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("MaxUploadBytes mismatch: got %d", cfg.MaxUploadBytes)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.GeoIPDBPath != "" {
		t.Fatalf("GeoIPDBPath should be empty, got %q", cfg.GeoIPDBPath)
	}
}

func TestLoadConfigGeoIPPath(t *testing.T) {
	t.Setenv("GEOIP_DB_PATH", " /var/lib/geoip/GeoLite2-Country.mmdb ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeoIPDBPath != "/var/lib/geoip/GeoLite2-Country.mmdb" {
		t.Fatalf("GeoIPDBPath mismatch: got %q", cfg.GeoIPDBPath)
	}
}

func TestLoadConfigAPIKeyAlias(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", " legacy-key ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "legacy-key" {
		t.Fatalf("GeminiAPIKey mismatch: got %q want %q", cfg.GeminiAPIKey, "legacy-key")
	}

	t.Setenv("GEMINI_API_KEY", "primary-key")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "primary-key" {
		t.Fatalf("GeminiAPIKey mismatch: got %q want %q", cfg.GeminiAPIKey, "primary-key")
	}
}

func TestLoadConfigParsesOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://studio.example.com, ,http://localhost:5173 ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://studio.example.com", "http://localhost:5173"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestLoadConfigRejectsShortWriteTimeout(t *testing.T) {
	t.Setenv("GEMINI_TIMEOUT_SECONDS", "120")
	t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "30")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when the write timeout is shorter than the model timeout")
	}
}

func TestLoadConfigIgnoresInvalidIntegers(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Fatalf("RateLimitPerMin mismatch: got %d want 30", cfg.RateLimitPerMin)
	}
}

func TestUploadBodyLimitCoversBase64(t *testing.T) {
	cfg := &Config{MaxUploadBytes: 3000}
	if got := cfg.UploadBodyLimit(); got < 4000 {
		t.Fatalf("UploadBodyLimit() = %d, want at least 4000", got)
	}
}
