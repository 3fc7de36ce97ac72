package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:    AppConfig{Env: "local", Port: 3000},
		Remote: RemoteConfig{BaseURL: "http://localhost:8080"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "APP_PORT", "API_BASE_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestValidate_AppliesDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Remote.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", c.Remote.Timeout)
	}
	if c.CookieSecure() {
		t.Fatalf("expected insecure cookies outside production")
	}
	if c.RedisEnabled() || c.PostgresEnabled() {
		t.Fatalf("expected optional backends disabled")
	}
}

func TestValidate_RejectsRelativeBaseURL(t *testing.T) {
	c := validConfig()
	c.Remote.BaseURL = "/api"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for relative API_BASE_URL")
	}
}

func TestValidate_ProductionCookies(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !c.CookieSecure() {
		t.Fatalf("expected secure cookies in production")
	}

	insecure := false
	c = validConfig()
	c.App.Env = "production"
	c.Cookie.Secure = &insecure
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for insecure cookies in production")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "gateway"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validConfig()
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "gateway"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if !c.PostgresEnabled() {
		t.Fatalf("expected postgres enabled")
	}
}

func TestValidate_RedisPairNeedsPort(t *testing.T) {
	c := validConfig()
	c.Redis = RedisConfig{Host: "localhost"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for REDIS_HOST without port")
	}
	c.Redis.Port = 6379
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.RedisAddr() != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
	if c.Redis.KeyPrefix != "gateway:session:" {
		t.Fatalf("expected default key prefix, got %q", c.Redis.KeyPrefix)
	}

	c.Redis.DB = -1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative REDIS_DB")
	}
}

func TestValidateMockAPI(t *testing.T) {
	c := validConfig()
	if err := c.ValidateMockAPI(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}

	c.MockAPI.JWTSecret = "secret"
	if err := c.ValidateMockAPI(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.MockAPI.Port != 8080 || c.MockAPI.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", c.MockAPI)
	}
	if c.MockAPIAddr() != ":8080" {
		t.Fatalf("unexpected addr %q", c.MockAPIAddr())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "3000")
	t.Setenv("API_BASE_URL", "http://api.local")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_PASSWORD", "pw")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_KEY_PREFIX", "tenant-a:sid:")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Remote.Timeout != 5*time.Second || !c.CookieSecure() || !c.RedisEnabled() {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.Redis.Password != "pw" || c.Redis.DB != 2 || c.Redis.KeyPrefix != "tenant-a:sid:" {
		t.Fatalf("unexpected redis config: %+v", c.Redis)
	}
}

func TestLoad_ReportsParseErrors(t *testing.T) {
	t.Setenv("APP_PORT", "abc")
	t.Setenv("API_TIMEOUT", "soon")
	t.Setenv("COOKIE_SECURE", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected parse errors")
	}
	for _, want := range []string{"APP_PORT", "API_TIMEOUT", "COOKIE_SECURE"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}
