package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Server contains the HTTP gateway settings.
type Server struct {
	Port        string `toml:"port" yaml:"port" validate:"required,numeric"`
	UploadDir   string `toml:"upload_dir" yaml:"upload_dir" validate:"required"`
	MaxUploadMB int    `toml:"max_upload_mb" yaml:"max_upload_mb" validate:"min=1,max=2048"`
	CORSOrigins string `toml:"cors_origins" yaml:"cors_origins"`
}

// Logging contains log output settings. Format "auto" picks text on a terminal.
type Logging struct {
	Level  string `toml:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" yaml:"format" validate:"oneof=auto json text"`
}

// Store selects where video records are kept.
type Store struct {
	Backend    string `toml:"backend" yaml:"backend" validate:"oneof=sqlite postgrest"`
	SQLitePath string `toml:"sqlite_path" yaml:"sqlite_path"`
}

// AI contains the transcription service settings.
type AI struct {
	Addr           string `toml:"addr" yaml:"addr"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds" validate:"min=1"`
}

// TTS contains the speech synthesis service settings.
type TTS struct {
	URL            string `toml:"url" yaml:"url" validate:"omitempty,url"`
	Voice          string `toml:"voice" yaml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds" validate:"min=1"`
}

// Redis contains the transcript cache settings. An empty Addr disables the cache.
type Redis struct {
	Addr     string `toml:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db" validate:"min=0"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
	TTLHours int    `toml:"ttl_hours" yaml:"ttl_hours" validate:"min=1"`
}

// Sessions contains the narration session host settings.
type Sessions struct {
	IdleMinutes int `toml:"idle_minutes" yaml:"idle_minutes" validate:"min=1"`
}

// Workers sizes the synthesis worker pool.
type Workers struct {
	Count int `toml:"count" yaml:"count" validate:"min=1,max=64"`
	Queue int `toml:"queue" yaml:"queue" validate:"min=1"`
}

// Tools names the external binaries.
type Tools struct {
	YtDlp          string `toml:"yt_dlp" yaml:"yt_dlp" validate:"required"`
	FFprobe        string `toml:"ffprobe" yaml:"ffprobe" validate:"required"`
	ExtractSeconds int    `toml:"extract_timeout_seconds" yaml:"extract_timeout_seconds" validate:"min=1"`
}

// Config encapsulates all configuration values for the gateway.
type Config struct {
	Server   Server   `toml:"server" yaml:"server"`
	Logging  Logging  `toml:"logging" yaml:"logging"`
	Store    Store    `toml:"store" yaml:"store"`
	Supabase Supabase `toml:"supabase" yaml:"supabase"`
	AI       AI       `toml:"ai" yaml:"ai"`
	TTS      TTS      `toml:"tts" yaml:"tts"`
	Redis    Redis    `toml:"redis" yaml:"redis"`
	Sessions Sessions `toml:"sessions" yaml:"sessions"`
	Workers  Workers  `toml:"workers" yaml:"workers"`
	Tools    Tools    `toml:"tools" yaml:"tools"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: Server{
			Port:        "3000",
			UploadDir:   "uploads",
			MaxUploadMB: 200,
			CORSOrigins: "*",
		},
		Logging: Logging{Level: "info", Format: "auto"},
		Store:   Store{Backend: "sqlite", SQLitePath: filepath.Join("data", "cliphive.db")},
		Supabase: Supabase{
			Bucket: "videos",
		},
		AI:       AI{TimeoutSeconds: 300},
		TTS:      TTS{Voice: "alloy", TimeoutSeconds: 60},
		Redis:    Redis{Prefix: "cliphive", TTLHours: 24},
		Sessions: Sessions{IdleMinutes: 30},
		Workers:  Workers{Count: 4, Queue: 200},
		Tools:    Tools{YtDlp: "yt-dlp", FFprobe: "ffprobe", ExtractSeconds: 60},
	}
}

// Load builds the configuration from defaults, the optional file at path
// (.toml, .yaml or .yml) and the environment, then validates it. A .env file
// in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"PORT":                     &c.Server.Port,
		"CLIPHIVE_UPLOAD_DIR":      &c.Server.UploadDir,
		"CLIPHIVE_CORS_ORIGINS":    &c.Server.CORSOrigins,
		"CLIPHIVE_LOG_LEVEL":       &c.Logging.Level,
		"CLIPHIVE_LOG_FORMAT":      &c.Logging.Format,
		"CLIPHIVE_STORE":           &c.Store.Backend,
		"CLIPHIVE_SQLITE_PATH":     &c.Store.SQLitePath,
		"SUPABASE_URL":             &c.Supabase.URL,
		"SUPABASE_SERVICE_KEY":     &c.Supabase.ServiceKey,
		"CLIPHIVE_SUPABASE_BUCKET": &c.Supabase.Bucket,
		"CLIPHIVE_AI_ADDR":         &c.AI.Addr,
		"CLIPHIVE_TTS_URL":         &c.TTS.URL,
		"CLIPHIVE_TTS_VOICE":       &c.TTS.Voice,
		"REDIS_ADDR":               &c.Redis.Addr,
		"REDIS_PASSWORD":           &c.Redis.Password,
		"CLIPHIVE_YTDLP":           &c.Tools.YtDlp,
		"CLIPHIVE_FFPROBE":         &c.Tools.FFprobe,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"CLIPHIVE_MAX_UPLOAD_MB":        &c.Server.MaxUploadMB,
		"CLIPHIVE_WORKERS":              &c.Workers.Count,
		"CLIPHIVE_SESSION_IDLE_MINUTES": &c.Sessions.IdleMinutes,
		"REDIS_DB":                      &c.Redis.DB,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks field constraints and settings that depend on each other.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Store.Backend {
	case "sqlite":
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("invalid config: store.sqlite_path is required for the sqlite backend")
		}
	case "postgrest":
		if !c.Supabase.Enabled() {
			return errors.New("invalid config: supabase url and service key are required for the postgrest backend")
		}
	}
	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// SessionIdle is how long an untouched session lives.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Sessions.IdleMinutes) * time.Minute
}

// CacheTTL is how long a transcript stays cached.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLHours) * time.Hour
}
