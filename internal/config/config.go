package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the gateway and the mock API.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	Remote  RemoteConfig
	Cookie  CookieConfig
	DB      DBConfig
	Redis   RedisConfig
	MockAPI MockAPIConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// RemoteConfig points at the identity API the proxy endpoints and loader call.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

type CookieConfig struct {
	// Secure is nil when COOKIE_SECURE is unset; Validate defaults it per env.
	Secure *bool
}

// DBConfig is optional as a group: when DB_HOST is empty auth events stay in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional as a pair: when REDIS_HOST is empty sessions stay in memory.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// KeyPrefix namespaces snapshot keys when the instance is shared.
	KeyPrefix string
}

type MockAPIConfig struct {
	Port      int
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		// required by Validate; the mock API runs without it
		n, err := optionalInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Remote.BaseURL = strings.TrimSpace(os.Getenv("API_BASE_URL"))
	{
		d, err := optionalDuration("API_TIMEOUT")
		d, parseErrs = appendParseErr(parseErrs, d, err)
		c.Remote.Timeout = d
	}

	if v := strings.TrimSpace(os.Getenv("COOKIE_SECURE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("COOKIE_SECURE must be a boolean, got %q", v))
		} else {
			c.Cookie.Secure = &b
		}
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	{
		n, err := optionalInt("REDIS_DB")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.DB = n
	}
	c.Redis.KeyPrefix = strings.TrimSpace(os.Getenv("REDIS_KEY_PREFIX"))

	{
		n, err := optionalInt("MOCKAPI_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.MockAPI.Port = n
	}
	c.MockAPI.JWTSecret = os.Getenv("JWT_SECRET")
	c.MockAPI.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	{
		d, err := optionalDuration("JWT_TTL")
		d, parseErrs = appendParseErr(parseErrs, d, err)
		c.MockAPI.TokenTTL = d
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the gateway settings and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if !validPort(c.App.Port) {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Remote.BaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is required"))
	} else if u, err := url.Parse(c.Remote.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", c.Remote.BaseURL))
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = 30 * time.Second
	}

	if c.Cookie.Secure == nil {
		secure := c.IsProduction()
		c.Cookie.Secure = &secure
	} else if c.IsProduction() && !*c.Cookie.Secure {
		errs = append(errs, errors.New("COOKIE_SECURE cannot be false in production"))
	}

	if c.PostgresEnabled() {
		if !validPort(c.DB.Port) {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				// Local-friendly default; production must be explicit.
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.RedisEnabled() {
		if !validPort(c.Redis.Port) {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
		if c.Redis.DB < 0 {
			errs = append(errs, fmt.Errorf("REDIS_DB must be >= 0, got %d", c.Redis.DB))
		}
		if c.Redis.KeyPrefix == "" {
			c.Redis.KeyPrefix = "gateway:session:"
		}
	}

	return joinErrors(errs)
}

// ValidateMockAPI checks the settings the mock identity API needs.
func (c *Config) ValidateMockAPI() error {
	var errs []error

	if c.MockAPI.Port == 0 {
		c.MockAPI.Port = 8080
	}
	if !validPort(c.MockAPI.Port) {
		errs = append(errs, fmt.Errorf("MOCKAPI_PORT must be a valid port, got %d", c.MockAPI.Port))
	}
	if c.MockAPI.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.MockAPI.TokenTTL <= 0 {
		c.MockAPI.TokenTTL = 24 * time.Hour
	}
	if c.IsProduction() {
		errs = append(errs, errors.New("mock API must not run with APP_ENV=production"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) CookieSecure() bool {
	if c.Cookie.Secure == nil {
		return c.IsProduction()
	}
	return *c.Cookie.Secure
}

func (c Config) RedisEnabled() bool { return c.Redis.Host != "" }

func (c Config) PostgresEnabled() bool { return c.DB.Host != "" }

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) MockAPIAddr() string {
	return fmt.Sprintf(":%d", c.MockAPI.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return 0, nil
	}
	return mustInt(key)
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func appendParseErr[T any](errs []error, v T, err error) (T, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
