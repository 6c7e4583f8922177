package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string

	ProfileDir string

	MPVBinary    string
	FFPlayBinary string

	MetadataAPIBase string

	QuestionSeconds int
	TotalSeconds    int
	PauseSeconds    int
	OptionCount     int
	SnippetSeconds  int

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		ProfileDir: getEnvWithDefault("PROFILE_DIR", defaultProfileDir()),

		MPVBinary:    getEnvWithDefault("MPV_BINARY", "mpv"),
		FFPlayBinary: getEnvWithDefault("FFPLAY_BINARY", "ffplay"),

		MetadataAPIBase: getEnvWithDefault("METADATA_API_BASE", "https://api.deezer.com"),

		QuestionSeconds: getEnvAsIntWithDefault("QUESTION_SECONDS", 30),
		TotalSeconds:    getEnvAsIntWithDefault("TOTAL_SECONDS", 300),
		PauseSeconds:    getEnvAsIntWithDefault("PAUSE_SECONDS", 5),
		OptionCount:     getEnvAsIntWithDefault("OPTION_COUNT", 4),
		SnippetSeconds:  getEnvAsIntWithDefault("SNIPPET_SECONDS", 30),

		DBHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     getEnvAsIntWithDefault("DB_PORT", 5432),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),

		RedisHost:     getEnvWithDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvAsIntWithDefault("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvAsIntWithDefault("REDIS_DB", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBName == "" {
		return errors.New("DB_NAME is required")
	}

	if c.DBUser == "" {
		return errors.New("DB_USER is required")
	}

	if c.OptionCount < 2 || c.OptionCount > 10 {
		return errors.New("OPTION_COUNT must be between 2 and 10")
	}

	if c.QuestionSeconds < 1 {
		return errors.New("QUESTION_SECONDS must be at least 1")
	}

	if c.TotalSeconds < c.QuestionSeconds {
		return errors.New("TOTAL_SECONDS must be at least QUESTION_SECONDS")
	}

	if c.SnippetSeconds < 1 {
		return errors.New("SNIPPET_SECONDS must be at least 1")
	}

	return nil
}

func defaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./profiles"
	}
	return filepath.Join(home, ".config", "triviatune", "profiles")
}

func getEnvAsIntWithDefault(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvWithDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c *Config) GetDBConfig() *DBConfig {
	return &DBConfig{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c *Config) GetRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
