package database

import (
	"fmt"
	"sync"
	"time"
)

// DatabasePool caches a single database instance for the process and
// recreates it when the config changes or the connection goes unhealthy.
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase returns the shared database connection for the given config.
func GetDatabase(config DatabaseConfig) DatabaseInterface {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil || shouldRecreateConnection(globalPool, config) {
		if globalPool != nil && globalPool.instance != nil {
			globalPool.instance.Close()
		}

		instance := NewDatabase(config)
		globalPool = &DatabasePool{
			instance: instance,
			config:   config,
			lastUsed: time.Now(),
		}
	} else {
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()
	}

	return globalPool.instance
}

func shouldRecreateConnection(pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	if pool.config != newConfig {
		fmt.Printf("database: configuration changed, recreating connection\n")
		return true
	}

	if err := pool.instance.HealthCheck(); err != nil {
		fmt.Printf("database: health check failed, recreating: %v\n", err)
		return true
	}

	return false
}

// GetConnectionStats reports pool state for the debug endpoint.
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	return map[string]interface{}{
		"status":    "connected",
		"last_used": lastUsed.Format(time.RFC3339),
		"age":       time.Since(lastUsed).String(),
		"config": map[string]interface{}{
			"use_local_db": globalPool.config.UseLocalDB,
			"has_postgres": globalPool.config.PostgresDSN != "",
		},
	}
}
