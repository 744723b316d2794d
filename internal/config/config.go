package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Autosave struct {
		Debounce    string `yaml:"debounce"`
		StatusReset string `yaml:"status_reset"`
	} `yaml:"autosave"`
	Grader struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"grader"`
	Generator struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"generator"`
	Auth struct {
		ServiceSecret string `yaml:"service_secret"`
		Issuer        string `yaml:"issuer"`
	} `yaml:"auth"`
}

// Load reads YAML config from path, then applies environment overrides
// (a .env file is honoured when present). A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Ignore error so the service still starts when .env is absent.
	_ = godotenv.Load()
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Server.Port = envOr("PORT", c.Server.Port)
	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Redis.Addr = envOr("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOr("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envIntOr("REDIS_DB", c.Redis.DB)
	c.Postgres.URL = envOr("DATABASE_URL", c.Postgres.URL)
	c.Quiz.TTL = envOr("QUIZ_CACHE_TTL", c.Quiz.TTL)
	c.Autosave.Debounce = envOr("AUTOSAVE_DEBOUNCE", c.Autosave.Debounce)
	c.Autosave.StatusReset = envOr("AUTOSAVE_STATUS_RESET", c.Autosave.StatusReset)
	c.Grader.URL = envOr("GRADER_URL", c.Grader.URL)
	c.Generator.URL = envOr("GENERATOR_URL", c.Generator.URL)
	c.Auth.ServiceSecret = envOr("SERVICE_SECRET", c.Auth.ServiceSecret)
}

// Validate rejects durations that do not parse.
func (c Config) Validate() error {
	durations := map[string]string{
		"redis.ttl":             c.Redis.TTL,
		"quiz.ttl":              c.Quiz.TTL,
		"autosave.debounce":     c.Autosave.Debounce,
		"autosave.status_reset": c.Autosave.StatusReset,
		"grader.timeout":        c.Grader.Timeout,
		"generator.timeout":     c.Generator.Timeout,
	}
	for name, raw := range durations {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
