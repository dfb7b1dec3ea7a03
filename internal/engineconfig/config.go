// Package engineconfig holds the environment-driven knobs the lineage
// core itself reads. It intentionally stops short of dbt-project-directory
// discovery (env var, then cwd, then conventional paths) — that bootstrap
// step is an external concern performed before an Artifact Source is ever
// constructed.
package engineconfig

import (
	"os"
	"strconv"
	"time"
)

// Config is the engine-level configuration surface.
type Config struct {
	// Dialect is the default SQL dialect handed to the SQL Lineage
	// Adapter when a caller doesn't override it per request.
	Dialect string

	// SoftDepthCap bounds unbounded (depth_limit == -1) traversals
	// against pathological recursion.
	SoftDepthCap int

	// CacheTTL is how long a lineagecache response entry stays valid.
	// Zero disables caching.
	CacheTTL time.Duration

	Valkey ValkeyConfig
	Neo4j  Neo4jConfig
}

// ValkeyConfig configures the optional response cache backing.
type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
}

// Neo4jConfig configures the optional graph visualization mirror.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
}

// Load reads Config from the process environment, falling back to
// defaults suited to local development.
func Load() *Config {
	return &Config{
		Dialect:      getEnv("LINEAGE_SQL_DIALECT", "postgres"),
		SoftDepthCap: getEnvInt("LINEAGE_SOFT_DEPTH_CAP", 64),
		CacheTTL:     time.Duration(getEnvInt("LINEAGE_CACHE_TTL_SECS", 300)) * time.Second,
		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
