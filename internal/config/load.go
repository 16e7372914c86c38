package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
)

// Load builds Settings from defaults, the JSON file named by -config or
// CONFIG_FILE, the environment and args, in that order. getenv is usually
// os.Getenv.
func Load(args []string, getenv func(string) string) (*Settings, error) {
	s := Defaults()

	fl, err := parseFlags(args)
	if err != nil {
		return nil, err
	}

	path := fl.configFile
	if path == "" {
		path = getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadJSONFile(&s, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&s, getenv); err != nil {
		return nil, err
	}
	fl.apply(&s)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

/* ==== JSON ==== */

// Duration accepts "90s" style strings or integer seconds in JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(time.Duration(val) * time.Second)
	case string:
		parsed, err := parseDuration(val)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// fileConfig is the JSON shape of a config file. Absent fields keep the
// value from the previous layer.
type fileConfig struct {
	Addr            *string   `json:"addr"`
	PublicBaseURL   *string   `json:"public_base_url"`
	DatabaseURL     *string   `json:"db_url"`
	RedisAddr       *string   `json:"redis_addr"`
	RedisPassword   *string   `json:"redis_password"`
	RedisDB         *int      `json:"redis_db"`
	LogFormat       *string   `json:"log_format"`
	LogLevel        *string   `json:"log_level"`
	ShutdownTimeout *Duration `json:"shutdown_timeout"`
	MaxAvatarBytes  *int64    `json:"max_avatar_bytes"`

	JWTSecret            *string   `json:"jwt_secret"`
	AccessTokenTTL       *Duration `json:"access_token_ttl"`
	VerificationTokenTTL *Duration `json:"verification_token_ttl"`
	ResetTokenTTL        *Duration `json:"reset_token_ttl"`
	CacheBackend         *string   `json:"cache_backend"`
	CacheTTL             *Duration `json:"cache_ttl"`
	RateLimitBackend     *string   `json:"rate_limit_backend"`
	RateLimitWindow      *Duration `json:"rate_limit_window"`
	RateLimitMax         *int      `json:"rate_limit_max"`
	RevokeOnLogout       *bool     `json:"revoke_on_logout"`
	AuditEnabled         *bool     `json:"audit_enabled"`

	S3 *struct {
		Region        *string `json:"region"`
		Endpoint      *string `json:"endpoint"`
		AccessKey     *string `json:"access_key"`
		SecretKey     *string `json:"secret_key"`
		Bucket        *string `json:"bucket"`
		PublicBaseURL *string `json:"public_base_url"`
		PathStyle     *bool   `json:"path_style"`
	} `json:"s3"`

	Mail *struct {
		Server         *string `json:"server"`
		Port           *int    `json:"port"`
		Username       *string `json:"username"`
		Password       *string `json:"password"`
		From           *string `json:"from"`
		FromName       *string `json:"from_name"`
		StartTLS       *bool   `json:"starttls"`
		SSL            *bool   `json:"ssl_tls"`
		UseCredentials *bool   `json:"use_credentials"`
		ValidateCerts  *bool   `json:"validate_certs"`
	} `json:"mail"`
}

func loadJSONFile(s *Settings, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	defer f.Close()
	return loadJSON(s, f)
}

func loadJSON(s *Settings, r io.Reader) error {
	var c fileConfig
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	setString(&s.Addr, c.Addr)
	setString(&s.PublicBaseURL, c.PublicBaseURL)
	setString(&s.DatabaseURL, c.DatabaseURL)
	setString(&s.RedisAddr, c.RedisAddr)
	setString(&s.RedisPassword, c.RedisPassword)
	setInt(&s.RedisDB, c.RedisDB)
	setString(&s.LogFormat, c.LogFormat)
	setString(&s.LogLevel, c.LogLevel)
	setDuration(&s.ShutdownTimeout, c.ShutdownTimeout)
	if c.MaxAvatarBytes != nil {
		s.MaxAvatarBytes = *c.MaxAvatarBytes
	}

	e := &s.Engine
	if c.JWTSecret != nil {
		e.Token.Secret = []byte(*c.JWTSecret)
	}
	setDuration(&e.Token.AccessTTL, c.AccessTokenTTL)
	setDuration(&e.Token.VerificationTTL, c.VerificationTokenTTL)
	setDuration(&e.Token.ResetTTL, c.ResetTokenTTL)
	if c.CacheBackend != nil {
		e.Cache.Backend = goContacts.CacheBackend(*c.CacheBackend)
	}
	setDuration(&e.Cache.TTL, c.CacheTTL)
	if c.RateLimitBackend != nil {
		e.RateLimit.Backend = goContacts.LimiterBackend(*c.RateLimitBackend)
	}
	setDuration(&e.RateLimit.Window, c.RateLimitWindow)
	setInt(&e.RateLimit.Max, c.RateLimitMax)
	setBool(&e.Security.RevokeOnLogout, c.RevokeOnLogout)
	setBool(&e.Audit.Enabled, c.AuditEnabled)

	if c.S3 != nil {
		setString(&s.S3.Region, c.S3.Region)
		setString(&s.S3.Endpoint, c.S3.Endpoint)
		setString(&s.S3.AccessKey, c.S3.AccessKey)
		setString(&s.S3.SecretKey, c.S3.SecretKey)
		setString(&s.S3.Bucket, c.S3.Bucket)
		setString(&s.S3.PublicBaseURL, c.S3.PublicBaseURL)
		setBool(&s.S3.PathStyle, c.S3.PathStyle)
	}
	if c.Mail != nil {
		setString(&s.Mail.Host, c.Mail.Server)
		setInt(&s.Mail.Port, c.Mail.Port)
		setString(&s.Mail.Username, c.Mail.Username)
		setString(&s.Mail.Password, c.Mail.Password)
		setString(&s.Mail.From, c.Mail.From)
		setString(&s.Mail.FromName, c.Mail.FromName)
		setBool(&s.Mail.StartTLS, c.Mail.StartTLS)
		setBool(&s.Mail.SSL, c.Mail.SSL)
		setBool(&s.Mail.UseCredentials, c.Mail.UseCredentials)
		if c.Mail.ValidateCerts != nil {
			s.Mail.InsecureSkipVerify = !*c.Mail.ValidateCerts
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}

/* ==== ENVIRONMENT ==== */

func applyEnv(s *Settings, getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	if port := getenv("PORT"); port != "" {
		s.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	str("PUBLIC_BASE_URL", &s.PublicBaseURL)
	str("DB_URL", &s.DatabaseURL)
	str("REDIS_ADDR", &s.RedisAddr)
	str("REDIS_PASSWORD", &s.RedisPassword)
	num("REDIS_DB", &s.RedisDB)
	str("LOG_FORMAT", &s.LogFormat)
	str("LOG_LEVEL", &s.LogLevel)

	e := &s.Engine
	if v := getenv("JWT_SECRET"); v != "" {
		e.Token.Secret = []byte(v)
	}
	dur("ACCESS_TOKEN_TTL", &e.Token.AccessTTL)
	dur("VERIFICATION_TOKEN_TTL", &e.Token.VerificationTTL)
	dur("RESET_TOKEN_TTL", &e.Token.ResetTTL)
	if v := getenv("CACHE_BACKEND"); v != "" {
		e.Cache.Backend = goContacts.CacheBackend(v)
	}
	dur("CACHE_TTL", &e.Cache.TTL)
	if v := getenv("RATE_LIMIT_BACKEND"); v != "" {
		e.RateLimit.Backend = goContacts.LimiterBackend(v)
	}
	dur("RATE_LIMIT_WINDOW", &e.RateLimit.Window)
	num("RATE_LIMIT_MAX", &e.RateLimit.Max)
	boolean("REVOKE_ON_LOGOUT", &e.Security.RevokeOnLogout)
	boolean("AUDIT_ENABLED", &e.Audit.Enabled)

	str("S3_REGION", &s.S3.Region)
	str("S3_ENDPOINT", &s.S3.Endpoint)
	str("S3_ACCESS_KEY", &s.S3.AccessKey)
	str("S3_SECRET_KEY", &s.S3.SecretKey)
	str("S3_BUCKET", &s.S3.Bucket)
	str("S3_PUBLIC_BASE_URL", &s.S3.PublicBaseURL)
	boolean("S3_PATH_STYLE", &s.S3.PathStyle)

	str("MAIL_SERVER", &s.Mail.Host)
	num("MAIL_PORT", &s.Mail.Port)
	str("MAIL_USERNAME", &s.Mail.Username)
	str("MAIL_PASSWORD", &s.Mail.Password)
	str("MAIL_FROM", &s.Mail.From)
	str("MAIL_FROM_NAME", &s.Mail.FromName)
	boolean("MAIL_STARTTLS", &s.Mail.StartTLS)
	boolean("MAIL_SSL_TLS", &s.Mail.SSL)
	boolean("USE_CREDENTIALS", &s.Mail.UseCredentials)
	if v := getenv("VALIDATE_CERTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("VALIDATE_CERTS: %w", err))
		} else {
			s.Mail.InsecureSkipVerify = !b
		}
	}

	return errors.Join(errs...)
}

// parseDuration accepts Go duration strings and bare integers as seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

/* ==== FLAGS ==== */

type flagValues struct {
	configFile string
	set        map[string]bool

	addr        string
	dbURL       string
	redisAddr   string
	secret      string
	logLevel    string
	dev         bool
	migrate     bool
	accessTTL   time.Duration
	publicBase  string
	cacheBack   string
	limiterBack string
}

func parseFlags(args []string) (*flagValues, error) {
	fl := &flagValues{set: map[string]bool{}}
	fs := flag.NewFlagSet("contactsd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&fl.configFile, "config", "", "path to a JSON config file")
	fs.StringVar(&fl.addr, "a", "", "listen address, e.g. :8000")
	fs.StringVar(&fl.dbURL, "d", "", "PostgreSQL DSN")
	fs.StringVar(&fl.redisAddr, "redis", "", "redis address")
	fs.StringVar(&fl.secret, "s", "", "token signing secret")
	fs.StringVar(&fl.logLevel, "log-level", "", "debug, info, warn or error")
	fs.BoolVar(&fl.dev, "dev", false, "in-memory store, embedded redis and console mail")
	fs.BoolVar(&fl.migrate, "migrate", true, "apply database migrations on start")
	fs.DurationVar(&fl.accessTTL, "t", 0, "access token lifetime")
	fs.StringVar(&fl.publicBase, "public-url", "", "base URL used in emailed links")
	fs.StringVar(&fl.cacheBack, "cache", "", "identity cache backend: memory, redis or none")
	fs.StringVar(&fl.limiterBack, "limiter", "", "rate limiter backend: memory or redis")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	fs.Visit(func(f *flag.Flag) { fl.set[f.Name] = true })
	return fl, nil
}

// apply overwrites only the flags given on the command line.
func (fl *flagValues) apply(s *Settings) {
	if fl.set["a"] {
		s.Addr = fl.addr
	}
	if fl.set["d"] {
		s.DatabaseURL = fl.dbURL
	}
	if fl.set["redis"] {
		s.RedisAddr = fl.redisAddr
	}
	if fl.set["s"] {
		s.Engine.Token.Secret = []byte(fl.secret)
	}
	if fl.set["log-level"] {
		s.LogLevel = fl.logLevel
	}
	if fl.set["dev"] {
		s.Dev = fl.dev
	}
	if fl.set["migrate"] {
		s.Migrate = fl.migrate
	}
	if fl.set["t"] {
		s.Engine.Token.AccessTTL = fl.accessTTL
	}
	if fl.set["public-url"] {
		s.PublicBaseURL = fl.publicBase
	}
	if fl.set["cache"] {
		s.Engine.Cache.Backend = goContacts.CacheBackend(fl.cacheBack)
	}
	if fl.set["limiter"] {
		s.Engine.RateLimit.Backend = goContacts.LimiterBackend(fl.limiterBack)
	}
}
