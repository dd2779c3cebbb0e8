package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "ACCESS_TOKEN_TTL", "STORAGE_DRIVER", "ALLOWED_ORIGINS", "MIGRATE_ON_START", "PUBLIC_BASE_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want 8081", cfg.Port)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("access ttl: got %v", cfg.AccessTokenTTL)
	}
	if cfg.StorageDriver != StorageDisk {
		t.Errorf("storage driver: got %q", cfg.StorageDriver)
	}
	if cfg.MigrateOnStart {
		t.Error("migrate on start should default to false")
	}
	if cfg.PublicBaseURL != "http://localhost:8081" {
		t.Errorf("public base url: got %q", cfg.PublicBaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example/")
	t.Setenv("AUTH_RATE_LIMIT", "not-a-number")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("port: got %q", cfg.Port)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("access ttl: got %v", cfg.AccessTokenTTL)
	}
	if !cfg.MigrateOnStart {
		t.Error("expected MigrateOnStart")
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins); diff != "" {
		t.Errorf("allowed origins (-want +got):\n%s", diff)
	}
	if cfg.PublicBaseURL != "https://api.example" {
		t.Errorf("public base url: got %q", cfg.PublicBaseURL)
	}
	if cfg.AuthRateLimit != 5 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.AuthRateLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid disk", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.StorageDriver = "s3" }, true},
		{"supabase missing creds", func(c *Config) { c.StorageDriver = StorageSupabase }, true},
		{"supabase ok", func(c *Config) {
			c.StorageDriver = StorageSupabase
			c.SupabaseURL = "https://x.supabase.co"
			c.SupabaseKey = "key"
		}, false},
		{"zero ttl", func(c *Config) { c.ResetTokenTTL = 0 }, true},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero burst", func(c *Config) { c.AuthRateBurst = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				JWTSecret:       "s",
				AccessTokenTTL:  time.Minute,
				RefreshTokenTTL: time.Hour,
				ResetTokenTTL:   time.Minute,
				StorageDriver:   StorageDisk,
				StorageDir:      "/tmp/photos",
				AuthRateLimit:   1,
				AuthRateBurst:   1,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
