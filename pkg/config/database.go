package config

import (
	"fmt"
	"time"
)

// DatabaseConfig carries the PostgreSQL connection details needed to open
// the wide-column store behind STORE_HOST/STORE_PORT. The core config only
// names the contact point; a real driver needs credentials and pool sizing
// too, so these are read from conventional DB_* variables layered on top
// of the authoritative variables, not a replacement for them.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadDatabaseConfig builds a DatabaseConfig, defaulting Host/Port to the
// core's STORE_HOST/STORE_PORT contact point from cfg.
func LoadDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &DatabaseConfig{
		Host:            getEnv("DB_HOST", cfg.StoreHost),
		Port:            getEnvInt("DB_PORT", cfg.StorePort),
		User:            getEnv("DB_USER", "drp"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "drp_core"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SECONDS", 3600)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_TIME_SECONDS", 300)) * time.Second,
	}
}

// DSN builds a postgres connection string for lib/pq.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
