// Package dsn builds the postgres connection string from the environment.
package dsn

import (
	"fmt"
	"os"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// FromEnv reads DB_HOST, DB_PORT, DB_USER, DB_PASS and DB_NAME, falling
// back to local development defaults.
func FromEnv() string {
	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", "postgres")
	pass := envOr("DB_PASS", "postgres")
	dbname := envOr("DB_NAME", "dosier")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, pass, dbname)
}
