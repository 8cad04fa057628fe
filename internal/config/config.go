package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Worker   WorkerConfig
	Catalog  CatalogConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	URL    string
	JobTTL time.Duration
}

type GeminiConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
}

type StorageConfig struct {
	UploadPath         string
	MaxFileSize        int64
	AllowedFormats     []string
	MaxFilesPerRequest int
}

type WorkerConfig struct {
	Concurrency int
}

type CatalogConfig struct {
	Path string
}

type LogConfig struct {
	Level string
}

var defaults = map[string]any{
	"port":                  "8000",
	"env":                   "development",
	"db_enabled":            false,
	"db_host":               "localhost",
	"db_port":               "5432",
	"db_user":               "postgres",
	"db_password":           "postgres",
	"db_name":               "call_auditor",
	"redis_url":             "",
	"job_ttl":               "24h",
	"gemini_api_key":        "",
	"gemini_model":          "gemini-2.5-flash",
	"gemini_timeout":        "120s",
	"gemini_rpm":            60,
	"gemini_max_attempts":   1,
	"upload_path":           "./uploads",
	"max_file_size":         int64(50 * 1024 * 1024),
	"allowed_audio_formats": ".mp3,.wav,.m4a,.aac,.flac",
	"max_files_per_request": 10,
	"worker_concurrency":    4,
	"criteria_file":         "",
	"log_level":             "info",
}

// Load reads .env (if present), then an optional config.yaml, then the
// process environment. Environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("⚠️  Failed to read config file: %v\n", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("port"),
			Env:  v.GetString("env"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("db_enabled"),
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
		},
		Redis: RedisConfig{
			URL:    v.GetString("redis_url"),
			JobTTL: v.GetDuration("job_ttl"),
		},
		Gemini: GeminiConfig{
			APIKey:            v.GetString("gemini_api_key"),
			Model:             v.GetString("gemini_model"),
			Timeout:           v.GetDuration("gemini_timeout"),
			RequestsPerMinute: v.GetInt("gemini_rpm"),
			MaxAttempts:       v.GetInt("gemini_max_attempts"),
		},
		Storage: StorageConfig{
			UploadPath:         v.GetString("upload_path"),
			MaxFileSize:        v.GetInt64("max_file_size"),
			AllowedFormats:     splitList(v.GetString("allowed_audio_formats")),
			MaxFilesPerRequest: v.GetInt("max_files_per_request"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("worker_concurrency"),
		},
		Catalog: CatalogConfig{
			Path: v.GetString("criteria_file"),
		},
		Log: LogConfig{
			Level: v.GetString("log_level"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Storage.MaxFilesPerRequest <= 0 {
		return fmt.Errorf("MAX_FILES_PER_REQUEST must be positive, got %d", c.Storage.MaxFilesPerRequest)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Worker.Concurrency)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	return out
}
