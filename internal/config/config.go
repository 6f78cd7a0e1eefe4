package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Feed     FeedConfig
	Trading  TradingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД (сток для сделок)
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// FeedConfig - настройки подключения к внешнему потоку сделок
type FeedConfig struct {
	// URL WebSocket потока
	URL string

	// Символы для подписки (BTCUSDT, ETHUSDT, ...)
	Symbols []string

	// Фиксированная задержка перед переподключением после разрыва
	ReconnectDelay time.Duration

	// Интервал сброса батча сделок в БД
	BatchInterval time.Duration

	// Таймаут установки соединения
	ConnectTimeout time.Duration

	// Интервал ping для поддержания соединения
	PingInterval time.Duration
}

// TradingConfig - торговые параметры ядра
type TradingConfig struct {
	// Спред котировки относительно последней цены сделки (0.0002 = 0.02%)
	SpreadFactor float64

	// Допустимые значения плеча
	Leverages []int64
}

// defaultSymbols - список символов по умолчанию
var defaultSymbols = []string{
	"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT", "XRPUSDT",
	"ADAUSDT", "DOGEUSDT", "AVAXUSDT", "LINKUSDT", "TONUSDT",
	"TRXUSDT", "MATICUSDT", "DOTUSDT", "LTCUSDT",
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 5000),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "trades_db"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Feed: FeedConfig{
			URL:            getEnv("FEED_URL", "wss://stream.binance.com:9443/ws"),
			Symbols:        getEnvAsSlice("FEED_SYMBOLS", defaultSymbols),
			ReconnectDelay: getEnvAsDuration("FEED_RECONNECT_DELAY", 30*time.Second),
			BatchInterval:  getEnvAsDuration("FEED_BATCH_INTERVAL", 10*time.Second),
			ConnectTimeout: getEnvAsDuration("FEED_CONNECT_TIMEOUT", 10*time.Second),
			PingInterval:   getEnvAsDuration("FEED_PING_INTERVAL", 30*time.Second),
		},
		Trading: TradingConfig{
			SpreadFactor: getEnvAsFloat("TRADING_SPREAD_FACTOR", 0.0002),
			Leverages:    []int64{1, 5, 10, 20, 100},
		},
	}

	// Валидация числовых диапазонов
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет диапазоны параметров
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("FEED_SYMBOLS must contain at least one symbol")
	}

	if c.Feed.ReconnectDelay <= 0 {
		return fmt.Errorf("FEED_RECONNECT_DELAY must be positive, got %v", c.Feed.ReconnectDelay)
	}

	if c.Feed.BatchInterval <= 0 {
		return fmt.Errorf("FEED_BATCH_INTERVAL must be positive, got %v", c.Feed.BatchInterval)
	}

	if c.Trading.SpreadFactor < 0 || c.Trading.SpreadFactor >= 1 {
		return fmt.Errorf("TRADING_SPREAD_FACTOR must be in [0, 1), got %v", c.Trading.SpreadFactor)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice читает список значений через запятую, нормализуя к верхнему регистру
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
