package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	OllamaBaseURL   string `yaml:"ollama_base_url"`
	RedisHost       string `yaml:"redis_host"`
	RedisPort       string `yaml:"redis_port"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	ConversationTTL int    `yaml:"conversation_ttl"` // seconds
	LogLevel        string `yaml:"log_level"`
	Port            string `yaml:"port"`
}

// LoadConfig resolves configuration from an optional config.yaml,
// a .env file, and the process environment. Environment variables win.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		OllamaBaseURL:   "http://127.0.0.1:11434",
		RedisHost:       "redis",
		RedisPort:       "6379",
		ConversationTTL: 43200, // 12 hours
		LogLevel:        "info",
		Port:            "8000",
	}

	if data, err := os.ReadFile("config.yaml"); err == nil {
		_ = yaml.Unmarshal(data, &cfg)
	}

	cfg.OllamaBaseURL = getEnv("OLLAMA_API_BASE_URL", cfg.OllamaBaseURL)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.ConversationTTL = getEnvInt("CONVERSATION_TTL", cfg.ConversationTTL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Port = getEnv("PORT", cfg.Port)

	return cfg
}

func (c Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

func (c Config) TTL() time.Duration {
	return time.Duration(c.ConversationTTL) * time.Second
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
