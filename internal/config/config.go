package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"homegrid-data/internal/database"
)

// Config holds all homegrid-data (HTTP API) settings.
type Config struct {
	HTTP struct {
		Addr string
	}
	Database database.Config
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Session  SessionConfig  `yaml:"session"`
	Notifier NotifierConfig `yaml:"notifier"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

// SessionConfig controls the redis-backed session store.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"` // session lifetime; refreshed on use
}

// NotifierConfig points at the external notification service that delivers
// invitation messages.
type NotifierConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MQTTConfig configures the energy ingestion bridge (disabled by default).
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`    // e.g. "tcp://localhost:1883"
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Topic filter for device status messages; devices publish to "<id>/status".
	StatusTopic string `yaml:"status_topic"`
}

func Load() *Config {
	// Local dev convenience; missing .env is fine.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "homegrid")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Session.TTLMinutes = parseInt(getEnv("SESSION_TTL_MINUTES", "720"), 720)

	cfg.Notifier.BaseURL = getEnv("NOTIFIER_BASE_URL", "http://localhost:9090")
	cfg.Notifier.APIKey = getEnv("NOTIFIER_API_KEY", "")
	cfg.Notifier.TimeoutSeconds = parseInt(getEnv("NOTIFIER_TIMEOUT_SECONDS", "10"), 10)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "homegrid-data-bridge")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.StatusTopic = getEnv("MQTT_STATUS_TOPIC", "+/status")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
