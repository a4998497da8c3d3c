package cmd

import (
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/supplychain-sim/supplychain-sim/sim/store"
)

// DatabaseConfig selects the backing store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`   // sqlite file, or ":memory:"
	DSN    string `yaml:"dsn"`    // postgres URL; built from DB_* variables when empty
}

// loadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Ignoring unreadable .env file: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// postgresDSNFromEnv builds a connection URL from DB_NAME, DB_USER, DB_PASS,
// DB_HOST, DB_PORT and DB_SSLMODE.
func postgresDSNFromEnv() string {
	name := getEnv("DB_NAME", "supply_chain_sim")
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(getEnv("DB_HOST", "localhost"), getEnv("DB_PORT", "5432")),
		Path:   "/" + name,
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if pass := os.Getenv("DB_PASS"); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	q := url.Values{}
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// storeConfig resolves the store.Config for this database section.
func (c DatabaseConfig) storeConfig() (store.Config, error) {
	switch c.Driver {
	case "", store.DriverSQLite:
		return store.Config{Driver: store.DriverSQLite, DSN: c.Path}, nil
	case store.DriverPostgres:
		if c.DSN != "" {
			return store.Config{Driver: store.DriverPostgres, DSN: c.DSN}, nil
		}
		return store.Config{Driver: store.DriverPostgres, DSN: postgresDSNFromEnv()}, nil
	default:
		return store.Config{}, fmt.Errorf("unknown database driver %q", c.Driver)
	}
}
