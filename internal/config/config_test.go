package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contactsd.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaultsNeedSecret(t *testing.T) {
	_, err := Load(nil, envMap(nil))
	require.Error(t, err)

	s, err := Load(nil, envMap(map[string]string{"JWT_SECRET": "0123456789abcdef"}))
	require.NoError(t, err)

	want := Defaults()
	want.Engine.Token.Secret = []byte("0123456789abcdef")
	assert.Empty(t, cmp.Diff(want, *s))
}

func TestLoadEnv(t *testing.T) {
	s, err := Load(nil, envMap(map[string]string{
		"JWT_SECRET":             "0123456789abcdef",
		"PORT":                   "9000",
		"DB_URL":                 "postgres://u:p@db/contacts",
		"REDIS_ADDR":             "redis:6379",
		"ACCESS_TOKEN_TTL":       "30m",
		"VERIFICATION_TOKEN_TTL": "86400",
		"RATE_LIMIT_MAX":         "3",
		"CACHE_BACKEND":          "redis",
		"S3_BUCKET":              "pics",
		"S3_PATH_STYLE":          "true",
		"MAIL_SERVER":            "smtp.example.com",
		"MAIL_PORT":              "587",
		"MAIL_STARTTLS":          "true",
		"MAIL_SSL_TLS":           "false",
		"VALIDATE_CERTS":         "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", s.Addr)
	assert.Equal(t, "postgres://u:p@db/contacts", s.DatabaseURL)
	assert.Equal(t, "redis:6379", s.RedisAddr)
	assert.Equal(t, 30*time.Minute, s.Engine.Token.AccessTTL)
	assert.Equal(t, 24*time.Hour, s.Engine.Token.VerificationTTL)
	assert.Equal(t, 3, s.Engine.RateLimit.Max)
	assert.Equal(t, goContacts.CacheRedis, s.Engine.Cache.Backend)
	assert.Equal(t, "pics", s.S3.Bucket)
	assert.True(t, s.S3.PathStyle)
	assert.Equal(t, "smtp.example.com", s.Mail.Host)
	assert.Equal(t, 587, s.Mail.Port)
	assert.True(t, s.Mail.StartTLS)
	assert.False(t, s.Mail.SSL)
	assert.True(t, s.Mail.InsecureSkipVerify)
	assert.False(t, s.MailEnabled(), "no sender address configured")
}

func TestLoadEnvErrors(t *testing.T) {
	_, err := Load(nil, envMap(map[string]string{
		"JWT_SECRET":     "0123456789abcdef",
		"RATE_LIMIT_MAX": "lots",
		"CACHE_TTL":      "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_MAX")
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoadPrecedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"addr":             ":7000",
		"db_url":           "postgres://file/contacts",
		"jwt_secret":       "file-secret-0123456789",
		"access_token_ttl": "2h",
		"cache_ttl":        120,
		"s3":               map[string]any{"bucket": "from-file", "endpoint": "http://minio:9000"},
		"mail":             map[string]any{"server": "mail.file", "from": "noreply@example.com", "validate_certs": true},
	})

	s, err := Load(
		[]string{"-config", path, "-a", ":7100", "-t", "45m"},
		envMap(map[string]string{"DB_URL": "postgres://env/contacts"}),
	)
	require.NoError(t, err)

	assert.Equal(t, ":7100", s.Addr, "flag beats file")
	assert.Equal(t, "postgres://env/contacts", s.DatabaseURL, "env beats file")
	assert.Equal(t, []byte("file-secret-0123456789"), s.Engine.Token.Secret)
	assert.Equal(t, 45*time.Minute, s.Engine.Token.AccessTTL, "flag beats file")
	assert.Equal(t, 2*time.Minute, s.Engine.Cache.TTL)
	assert.Equal(t, "from-file", s.S3.Bucket)
	assert.Equal(t, "contacts", s.S3.KeyPrefix, "untouched default")
	assert.True(t, s.AvatarsEnabled())
	assert.True(t, s.MailEnabled())
	assert.False(t, s.Mail.InsecureSkipVerify)
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"jwt_secret": "0123456789abcdef", "log_level": "debug"})
	s, err := Load(nil, envMap(map[string]string{"CONFIG_FILE": path}))
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	s := Defaults()
	err := loadJSON(&s, strings.NewReader(`{"jwt_secret":"x","no_such_field":1}`))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.json")}, envMap(nil))
	require.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, s Settings)
	}{
		{
			name: "all flags",
			args: []string{"-a", "127.0.0.1:9090", "-d", "db", "-s", "flag-secret-0123456", "-redis", "r:6379",
				"-log-level", "warn", "-dev", "-migrate=false", "-public-url", "https://contacts.example.com",
				"-cache", "none", "-limiter", "redis"},
			check: func(t *testing.T, s Settings) {
				want := Defaults()
				want.Addr = "127.0.0.1:9090"
				want.DatabaseURL = "db"
				want.Engine.Token.Secret = []byte("flag-secret-0123456")
				want.RedisAddr = "r:6379"
				want.LogLevel = "warn"
				want.Dev = true
				want.Migrate = false
				want.PublicBaseURL = "https://contacts.example.com"
				want.Engine.Cache.Backend = goContacts.CacheNone
				want.Engine.RateLimit.Backend = goContacts.LimiterRedis
				assert.Empty(t, cmp.Diff(want, s))
			},
		},
		{name: "unknown flag", args: []string{"-nope"}, wantErr: true},
		{name: "bad duration", args: []string{"-t", "forever"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl, err := parseFlags(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			s := Defaults()
			fl.apply(&s)
			tt.check(t, s)
		})
	}
}

func TestValidate(t *testing.T) {
	base := Defaults()
	base.Engine.Token.Secret = []byte("0123456789abcdef")
	require.NoError(t, base.Validate())

	noDB := base
	noDB.DatabaseURL = ""
	require.Error(t, noDB.Validate())

	noDB.Dev = true
	require.NoError(t, noDB.Validate(), "dev mode runs without postgres")

	redisless := base
	redisless.RedisAddr = ""
	require.NoError(t, redisless.Validate(), "memory backends need no redis")
	redisless.Engine.Cache.Backend = goContacts.CacheRedis
	require.Error(t, redisless.Validate())

	noAddr := base
	noAddr.Addr = ""
	require.Error(t, noAddr.Validate())
}

func TestDurationJSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1m30s","b":15}`), &v))
	assert.Equal(t, 90*time.Second, time.Duration(v.A))
	assert.Equal(t, 15*time.Second, time.Duration(v.B))
	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}
