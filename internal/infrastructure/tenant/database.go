// Package tenant provides database abstraction for multi-tenant support.
package tenant

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

var (
	connectionPools = make(map[string]*sql.DB)
	poolMutex       = &sync.RWMutex{}
)

type Database struct {
	Conn     *sql.DB
	TenantID string
	UseTurso bool
	isPooled bool
}

// NewDatabase opens (or reuses from the process pool) the content store of
// one tenant: Turso when enabled, otherwise a SQLite file under the data dir.
func NewDatabase(cfg *Config, logger *logging.ChanneledLogger) (*Database, error) {
	poolKey := getPoolKey(cfg)

	poolMutex.Lock()
	defer poolMutex.Unlock()

	if pooledConn, exists := connectionPools[poolKey]; exists {
		if err := pooledConn.Ping(); err == nil {
			return &Database{
				Conn:     pooledConn,
				TenantID: cfg.TenantID,
				UseTurso: cfg.TursoEnabled && cfg.TursoDatabase != "",
				isPooled: true,
			}, nil
		}
		pooledConn.Close()
		delete(connectionPools, poolKey)
	}

	var conn *sql.DB
	var err error
	useTurso := false

	if cfg.TursoEnabled && cfg.TursoDatabase != "" && cfg.TursoToken != "" {
		connStr := cfg.TursoDatabase + "?authToken=" + cfg.TursoToken
		conn, err = sql.Open("libsql", connStr)
		if err != nil || conn.Ping() != nil {
			return nil, fmt.Errorf("tenant %s degraded: turso connection failed", cfg.TenantID)
		}
		useTurso = true
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		conn, err = sql.Open("sqlite3", cfg.SQLitePath+"?_foreign_keys=on&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("sqlite connection failed: %w", err)
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("SQLite database ping failed: %w", err)
		}
	}

	conn.SetMaxOpenConns(config.DBMaxOpenConns)
	conn.SetMaxIdleConns(config.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)
	conn.SetConnMaxIdleTime(time.Duration(config.DBConnMaxIdleMinutes) * time.Minute)

	connectionPools[poolKey] = conn

	if logger != nil {
		logger.Database().Info("Tenant database opened",
			"tenantId", cfg.TenantID, "turso", useTurso, "poolKey", poolKey)
	}

	return &Database{
		Conn:     conn,
		TenantID: cfg.TenantID,
		UseTurso: useTurso,
		isPooled: true,
	}, nil
}

// WrapDatabase adapts an already open handle (tests, tooling). The handle
// is not pooled, so Close closes it.
func WrapDatabase(tenantID string, conn *sql.DB) *Database {
	return &Database{Conn: conn, TenantID: tenantID}
}

func getPoolKey(cfg *Config) string {
	if cfg.TursoEnabled && cfg.TursoDatabase != "" {
		return fmt.Sprintf("turso:%s", cfg.TenantID)
	}
	return fmt.Sprintf("sqlite:%s", cfg.SQLitePath)
}

func (db *Database) Close() error {
	if db.isPooled {
		return nil
	}
	if db.Conn != nil {
		return db.Conn.Close()
	}
	return nil
}

func (db *Database) GetConnectionInfo() string {
	poolStatus := ""
	if db.isPooled {
		poolStatus = " (pooled)"
	}
	if db.UseTurso {
		return fmt.Sprintf("Turso (tenant: %s)%s", db.TenantID, poolStatus)
	}
	return fmt.Sprintf("SQLite (tenant: %s)%s", db.TenantID, poolStatus)
}

func GetPoolStats() map[string]int {
	poolMutex.RLock()
	defer poolMutex.RUnlock()

	stats := map[string]int{"total": len(connectionPools)}
	active := 0
	for _, conn := range connectionPools {
		if conn.Ping() == nil {
			active++
		}
	}
	stats["active"] = active
	return stats
}

// CleanupStaleConnections drops pooled handles that no longer answer a ping.
func CleanupStaleConnections(logger *logging.ChanneledLogger) int {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	removed := 0
	for key, conn := range connectionPools {
		if err := conn.Ping(); err != nil {
			conn.Close()
			delete(connectionPools, key)
			removed++
			if logger != nil {
				logger.Database().Warn("Database pool cleanup: removed dead connection", "poolKey", key)
			}
		}
	}
	return removed
}

// CloseAllPools closes every pooled handle; used on shutdown.
func CloseAllPools() {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	for key, conn := range connectionPools {
		conn.Close()
		delete(connectionPools, key)
	}
}
