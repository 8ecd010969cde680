package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "coursedesk-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "coursedesk-auth")
	}
	if cfg.JWTAudience != "coursedesk-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "coursedesk-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.RefreshTTLRaw != "336h" {
		t.Errorf("RefreshTTLRaw = %q, want %q", cfg.RefreshTTLRaw, "336h")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.TelemetryKafkaTopic != "coursedesk-telemetry" {
		t.Errorf("TelemetryKafkaTopic = %q, want default", cfg.TelemetryKafkaTopic)
	}
	if cfg.GoogleEnabled() {
		t.Error("GoogleEnabled should be false without client id and redirect URI")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("Load with BCRYPT_COST=99 should return error")
	}
}

func TestLoad_InvalidGoogleRedirectURI(t *testing.T) {
	cases := []struct {
		name string
		uri  string
	}{
		{"relative", "/auth/google/callback"},
		{"no scheme", "example.com/cb"},
		{"garbage", "://nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("GOOGLE_REDIRECT_URI", tc.uri)
			if _, err := Load(); err == nil {
				t.Errorf("Load with GOOGLE_REDIRECT_URI=%q should return error", tc.uri)
			}
		})
	}
}

func TestLoad_ValidGoogleRedirectURI(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("GOOGLE_CLIENT_ID", "client-123")
	os.Setenv("GOOGLE_REDIRECT_URI", "https://app.example.com/auth/google/callback")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.GoogleEnabled() {
		t.Error("GoogleEnabled should be true with client id and absolute redirect URI")
	}
}

func TestConfig_TTLFallbacks(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "bogus", RefreshTTLRaw: "-5m"}
	if got := cfg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v, want 15m", got)
	}
	if got := cfg.RefreshTTL(); got != 336*time.Hour {
		t.Errorf("RefreshTTL fallback = %v, want 336h", got)
	}

	cfg = &Config{JWTAccessTTL: "30m", RefreshTTLRaw: "336h"}
	if got := cfg.AccessTTL(); got != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", got)
	}
	if got := cfg.RefreshTTL(); got != 336*time.Hour {
		t.Errorf("RefreshTTL = %v, want 336h", got)
	}
}

func TestConfig_TelemetryKafkaBrokersList(t *testing.T) {
	cfg := &Config{TelemetryKafkaBrokers: "localhost:9092, broker2:9092 ,,"}
	got := cfg.TelemetryKafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("TelemetryKafkaBrokersList = %v", got)
	}

	cfg = &Config{}
	if got := cfg.TelemetryKafkaBrokersList(); got != nil {
		t.Errorf("empty brokers should return nil, got %v", got)
	}
}
