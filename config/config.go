// Package config loads CLI settings from an optional YAML file and MAILNOTIFY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/credential"
)

// EnvPrefix prefixes every environment variable override, e.g. MAILNOTIFY_STORE_KIND.
const EnvPrefix = "MAILNOTIFY"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Log levels.
const (
	LogQuiet = "quiet"
	LogInfo  = "info"
	LogDebug = "debug"
)

type Config struct {
	// APIURL is the backend origin, without the /api/v1 prefix.
	APIURL string `validate:"required,url"`
	// Timeout bounds a single HTTP attempt.
	Timeout  time.Duration `validate:"gte=0"`
	LogLevel string        `validate:"oneof=quiet info debug"`
	Store    Store
}

// Store selects where the credential pair is persisted between CLI invocations.
type Store struct {
	Kind string `validate:"oneof=memory file redis"`
	// URL is an afs URL used by the file store.
	URL string `validate:"required_if=Kind file"`
	// EncryptionKey is an optional base64 encoded 32 byte key for the file store.
	EncryptionKey string `validate:"omitempty,base64"`
	RedisAddr     string `validate:"required_if=Kind redis"`
	RedisPrefix   string
	RedisTTL      time.Duration `validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from path, or from mailnotify.yaml in the working or
// ~/.mailnotify directory when path is empty. Environment variables take precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mailnotify")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mailnotify"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	ret := &Config{}
	if err := v.Unmarshal(ret, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func setDefaults(v *viper.Viper) {
	// every key needs a default for AutomaticEnv to reach it during Unmarshal
	v.SetDefault("apiurl", "http://localhost:8080")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("loglevel", LogInfo)
	v.SetDefault("store.kind", StoreFile)
	v.SetDefault("store.url", defaultCredentialsURL())
	v.SetDefault("store.encryptionkey", "")
	v.SetDefault("store.redisaddr", "")
	v.SetDefault("store.redisprefix", "mailnotify:")
	v.SetDefault("store.redisttl", time.Duration(0))
}

func defaultCredentialsURL() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return "file://" + filepath.Join(home, ".mailnotify", "credentials.json")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return err
		}
		var messages []string
		for _, fieldErr := range fieldErrors {
			messages = append(messages, fmt.Sprintf("%s failed %q", fieldErr.Namespace(), fieldErr.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(messages, ", "))
	}
	return nil
}

// NewStore creates the configured credential store.
// A store holding connections implements io.Closer; the caller closes it when done.
func (c *Config) NewStore() (credential.Store, error) {
	switch c.Store.Kind {
	case StoreMemory:
		return credential.NewMemoryStore(), nil
	case StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.Store.RedisAddr})
		return credential.NewRedisStore(rdb, c.Store.RedisPrefix, c.Store.RedisTTL), nil
	case StoreFile:
		var opts []credential.FileOption
		if c.Store.EncryptionKey != "" {
			key, err := credential.ParseKey(c.Store.EncryptionKey)
			if err != nil {
				return nil, err
			}
			opts = append(opts, credential.WithEncryptionKey(key))
		}
		return credential.NewFileStore(c.Store.URL, opts...), nil
	}
	return nil, fmt.Errorf("unsupported store kind: %v", c.Store.Kind)
}

// NewLogger creates a logger for the configured level.
func (c *Config) NewLogger(writer io.Writer) mailnotify.Logger {
	switch c.LogLevel {
	case LogQuiet:
		return mailnotify.NopLogger{}
	case LogDebug:
		return mailnotify.NewDebugLogger(writer)
	}
	return mailnotify.NewStdLogger(writer)
}
