package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinSecretLength is the minimum HS256 secret size in bytes.
	MinSecretLength = 32

	maxBcryptCost = 16
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Password PasswordConfig
	Login    LoginConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. An empty Host disables Redis-backed throttling.
type RedisConfig struct {
	Host string
	Port int
}

// AuthConfig describes the token signing key and validation parameters.
// It is loaded once and never mutated after startup.
type AuthConfig struct {
	// JWTAlgorithm is HS256 or RS256.
	JWTAlgorithm string

	// HS256 shared secret. Treat as a secret.
	JWTSecret string

	// RS256 key material (PEM contents, not paths). The public key is
	// optional and derived from the private key when empty.
	JWTPrivateKeyPEM string
	JWTPublicKeyPEM  string

	JWTKeyID    string
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration
	Leeway      time.Duration
}

type PasswordConfig struct {
	// Algorithm is bcrypt or argon2id. Verification accepts both regardless.
	Algorithm  string
	BcryptCost int
}

type LoginConfig struct {
	// MaxConcurrent caps in-flight login attempts per client IP (Redis).
	MaxConcurrent int
	// RatePerSecond and Burst configure the in-process fallback limiter.
	RatePerSecond float64
	Burst         int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
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

	c.Auth.JWTAlgorithm = strings.ToUpper(strings.TrimSpace(os.Getenv("JWT_ALGORITHM")))
	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if path := strings.TrimSpace(os.Getenv("JWT_PRIVATE_KEY_FILE")); path != "" {
		pem, err := readFile("JWT_PRIVATE_KEY_FILE", path)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Auth.JWTPrivateKeyPEM = pem
	}
	if path := strings.TrimSpace(os.Getenv("JWT_PUBLIC_KEY_FILE")); path != "" {
		pem, err := readFile("JWT_PUBLIC_KEY_FILE", path)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Auth.JWTPublicKeyPEM = pem
	}
	c.Auth.JWTKeyID = strings.TrimSpace(os.Getenv("JWT_KEY_ID"))
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	{
		d, err := optionalDuration("JWT_TTL")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Auth.TokenTTL = d
	}
	{
		d, err := optionalDuration("JWT_LEEWAY")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Auth.Leeway = d
	}

	c.Password.Algorithm = strings.ToLower(strings.TrimSpace(os.Getenv("PASSWORD_ALGORITHM")))
	{
		n, err := optionalInt("BCRYPT_COST")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Password.BcryptCost = n
	}

	{
		n, err := optionalInt("LOGIN_MAX_CONCURRENT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Login.MaxConcurrent = n
	}
	{
		n, err := optionalInt("LOGIN_BURST")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Login.Burst = n
	}
	if v := strings.TrimSpace(os.Getenv("LOGIN_RATE_PER_SECOND")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("LOGIN_RATE_PER_SECOND must be a number, got %q", v))
		}
		c.Login.RatePerSecond = f
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	errs = append(errs, c.validateAuth()...)

	switch c.Password.Algorithm {
	case "":
		c.Password.Algorithm = "bcrypt"
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_ALGORITHM must be bcrypt or argon2id, got %q", c.Password.Algorithm))
	}
	if c.Password.BcryptCost == 0 {
		c.Password.BcryptCost = bcrypt.DefaultCost
	}
	if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > maxBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, maxBcryptCost, c.Password.BcryptCost))
	}

	if c.Login.MaxConcurrent <= 0 {
		c.Login.MaxConcurrent = 5
	}
	if c.Login.RatePerSecond <= 0 {
		c.Login.RatePerSecond = 1
	}
	if c.Login.Burst <= 0 {
		c.Login.Burst = 5
	}

	return joinErrors(errs)
}

func (c *Config) validateAuth() []error {
	var errs []error

	switch c.Auth.JWTAlgorithm {
	case "":
		c.Auth.JWTAlgorithm = "HS256"
		fallthrough
	case "HS256":
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required"))
		} else if len(c.Auth.JWTSecret) < MinSecretLength {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength))
		}
	case "RS256":
		if strings.TrimSpace(c.Auth.JWTPrivateKeyPEM) == "" {
			errs = append(errs, errors.New("JWT_PRIVATE_KEY_FILE is required for RS256"))
		}
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM must be HS256 or RS256, got %q", c.Auth.JWTAlgorithm))
	}

	if c.Auth.JWTIssuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required"))
	}
	if c.Auth.JWTAudience == "" {
		errs = append(errs, errors.New("JWT_AUDIENCE is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 15 * time.Minute
	}
	if c.Auth.Leeway < 0 {
		errs = append(errs, errors.New("JWT_LEEWAY must not be negative"))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
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

// RedisAddr returns "" when Redis is not configured.
func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
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
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
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

func readFile(key, path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return string(b), nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

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
