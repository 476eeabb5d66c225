package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("MONGODB_DATABASE", "codespace_test")
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("REDIS_PORT", "6379")
	os.Setenv("JWT_SECRET", "testsecret123456789012345678901234")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.ShareToken.DefaultTTL <= 0 || cfg.ShareToken.MaxTTL < cfg.ShareToken.DefaultTTL {
		t.Fatalf("unexpected share token TTLs: %+v", cfg.ShareToken)
	}
}

func TestLoadConfig_ShareTokenSecretFallback(t *testing.T) {
	os.Setenv("JWT_SECRET", "auth-secret-123456789012345678901234")
	os.Unsetenv("SHARE_TOKEN_SECRET")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ShareToken.Secret != cfg.JWT.Secret {
		t.Fatalf("expected share token secret to fall back to JWT secret")
	}
	if cfg.JWT.AccessTokenTTL < time.Minute {
		t.Fatalf("unexpected access token TTL: %v", cfg.JWT.AccessTokenTTL)
	}
}
