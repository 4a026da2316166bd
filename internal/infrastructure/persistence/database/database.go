// Package database provides the core functionality for creating and managing
// the installation database: the store shared by every tenant that holds
// settings and the operation log.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	schema "github.com/AtRiskMedia/postdup-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	_ "github.com/mattn/go-sqlite3"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
}

// InstallationPath is where the installation store lives under the data dir.
func InstallationPath(dataDir string) string {
	return filepath.Join(dataDir, "network", "installation.db")
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	if err = db.Ping(); err != nil {
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		db.Close()
		return nil, err
	}

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", driverName, "duration", duration)
	CheckAndLogSlowQuery(logger, "DATABASE_CONNECTION", duration, "system")

	return &DB{db}, nil
}

// OpenInstallation opens (creating if needed) the installation store and
// ensures its schema.
func OpenInstallation(dataDir string, logger *logging.ChanneledLogger) (*DB, error) {
	path := InstallationPath(dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create installation directory: %w", err)
	}

	db, err := NewConnectionWithLogger("sqlite3", path+"?_busy_timeout=5000", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open installation database: %w", err)
	}

	if err := schema.NewTableCreator().CreateInstallationSchema(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
