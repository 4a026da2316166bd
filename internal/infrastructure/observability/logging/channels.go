// Package logging provides structured logging channels for duplication
// operations with multi-tenant context.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
)

// Channel represents a logical logging channel for different system components
type Channel string

const (
	ChannelSystem   Channel = "system"
	ChannelStartup  Channel = "startup"
	ChannelShutdown Channel = "shutdown"

	ChannelAuth        Channel = "auth"
	ChannelDuplication Channel = "duplication"
	ChannelMedia       Channel = "media"
	ChannelTaxonomy    Channel = "taxonomy"
	ChannelMeta        Channel = "meta"

	ChannelDatabase Channel = "database"
	ChannelTenant   Channel = "tenant"
	ChannelHTTP     Channel = "http"

	ChannelPerf      Channel = "performance"
	ChannelSlowQuery Channel = "slow-query"
)

var allChannels = []Channel{
	ChannelSystem, ChannelStartup, ChannelShutdown,
	ChannelAuth, ChannelDuplication, ChannelMedia, ChannelTaxonomy, ChannelMeta,
	ChannelDatabase, ChannelTenant, ChannelHTTP,
	ChannelPerf, ChannelSlowQuery,
}

// ChanneledLogger provides structured logging with multiple channels
type ChanneledLogger struct {
	channels map[Channel]*slog.Logger
	files    map[Channel]*os.File
	config   *LoggerConfig
	configMu sync.RWMutex
}

// LoggerConfig contains configuration options for the channeled logger
type LoggerConfig struct {
	OutputToFile    bool   `json:"outputToFile"`
	OutputToConsole bool   `json:"outputToConsole"`
	LogDirectory    string `json:"logDirectory"`

	JSONFormat    bool `json:"jsonFormat"`
	IncludeSource bool `json:"includeSource"`

	DefaultLevel  slog.Level             `json:"defaultLevel"`
	ChannelLevels map[Channel]slog.Level `json:"channelLevels"`

	// Extra receives a copy of every record when set (tests, live tails).
	Extra io.Writer `json:"-"`
}

// DefaultLoggerConfig returns a sensible default configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		OutputToFile:    true,
		OutputToConsole: true,
		LogDirectory:    "logs",
		JSONFormat:      true,
		IncludeSource:   false,
		DefaultLevel:    slog.LevelInfo,
		ChannelLevels:   make(map[Channel]slog.Level),
	}
}

// NewChanneledLogger creates a new channeled logger with the given configuration
func NewChanneledLogger(config *LoggerConfig) (*ChanneledLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if config.ChannelLevels == nil {
		config.ChannelLevels = make(map[Channel]slog.Level)
	}

	logger := &ChanneledLogger{
		channels: make(map[Channel]*slog.Logger),
		files:    make(map[Channel]*os.File),
		config:   config,
	}

	if config.OutputToFile {
		if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	for _, channel := range allChannels {
		channelLogger, err := logger.createChannelLogger(channel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for channel %s: %w", channel, err)
		}
		logger.channels[channel] = channelLogger
	}

	return logger, nil
}

// NewNopLogger returns a logger that discards everything. Used by tests and
// by components constructed without a logger.
func NewNopLogger() *ChanneledLogger {
	logger, _ := NewChanneledLogger(&LoggerConfig{
		Extra:        io.Discard,
		DefaultLevel: slog.LevelError + 4,
	})
	return logger
}

func (cl *ChanneledLogger) createChannelLogger(channel Channel) (*slog.Logger, error) {
	level := cl.config.DefaultLevel
	if channelLevel, exists := cl.config.ChannelLevels[channel]; exists {
		level = channelLevel
	}

	var writers []io.Writer
	if cl.config.OutputToConsole {
		writers = append(writers, os.Stdout)
	}

	if cl.config.OutputToFile {
		file, ok := cl.files[channel]
		if !ok {
			path := filepath.Join(cl.config.LogDirectory, fmt.Sprintf("%s.log", string(channel)))
			var err error
			file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
			}
			cl.files[channel] = file
		}
		writers = append(writers, file)
	}

	if cl.config.Extra != nil {
		writers = append(writers, cl.config.Extra)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cl.config.IncludeSource,
	}

	var handler slog.Handler
	if cl.config.JSONFormat {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	return slog.New(handler).With(slog.String("channel", string(channel))), nil
}

func (cl *ChanneledLogger) System() *slog.Logger      { return cl.GetChannel(ChannelSystem) }
func (cl *ChanneledLogger) Startup() *slog.Logger     { return cl.GetChannel(ChannelStartup) }
func (cl *ChanneledLogger) Shutdown() *slog.Logger    { return cl.GetChannel(ChannelShutdown) }
func (cl *ChanneledLogger) Auth() *slog.Logger        { return cl.GetChannel(ChannelAuth) }
func (cl *ChanneledLogger) Duplication() *slog.Logger { return cl.GetChannel(ChannelDuplication) }
func (cl *ChanneledLogger) Database() *slog.Logger    { return cl.GetChannel(ChannelDatabase) }
func (cl *ChanneledLogger) Tenant() *slog.Logger      { return cl.GetChannel(ChannelTenant) }
func (cl *ChanneledLogger) HTTP() *slog.Logger        { return cl.GetChannel(ChannelHTTP) }
func (cl *ChanneledLogger) Perf() *slog.Logger        { return cl.GetChannel(ChannelPerf) }
func (cl *ChanneledLogger) SlowQuery() *slog.Logger   { return cl.GetChannel(ChannelSlowQuery) }

// GetChannel returns a logger for a specific channel
func (cl *ChanneledLogger) GetChannel(channel Channel) *slog.Logger {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()
	if logger, exists := cl.channels[channel]; exists {
		return logger
	}
	return cl.channels[ChannelSystem]
}

// WithTenant returns a logger with tenant context
func (cl *ChanneledLogger) WithTenant(channel Channel, tenantID string) *slog.Logger {
	return cl.GetChannel(channel).With(slog.String("tenantId", tenantID))
}

// WithTenantAndOperation returns a logger with both tenant and operation context
func (cl *ChanneledLogger) WithTenantAndOperation(channel Channel, tenantID, operation string) *slog.Logger {
	return cl.WithTenant(channel, tenantID).With(slog.String("operation", operation))
}

// LogSlowQuery logs a slow database query
func (cl *ChanneledLogger) LogSlowQuery(query string, duration time.Duration, tenantID string) {
	if len(query) > 500 {
		query = query[:500] + "..."
	}
	cl.SlowQuery().Warn("Slow query detected",
		slog.String("query", query),
		slog.Duration("duration", duration),
		slog.String("tenantId", tenantID),
	)
}

// LogMarker records a completed performance marker on the performance
// channel. Register it with performance.Tracker.Observe.
func (cl *ChanneledLogger) LogMarker(marker *performance.Marker) {
	attrs := []any{
		slog.String("operation", marker.Operation),
		slog.String("tenantId", marker.TenantID),
		slog.Duration("duration", marker.Duration),
		slog.Bool("success", marker.Success),
	}
	if marker.Error != "" {
		cl.Perf().Warn("Operation failed", append(attrs, slog.String("error", marker.Error))...)
		return
	}
	cl.Perf().Debug("Operation completed", attrs...)
}

// LogAuthOperation logs authentication outcomes
func (cl *ChanneledLogger) LogAuthOperation(operation, tenantID string, success bool, metadata map[string]any) {
	logger := cl.Auth().With(
		slog.String("operation", operation),
		slog.String("tenantId", tenantID),
		slog.Bool("success", success),
	)
	for key, value := range metadata {
		logger = logger.With(slog.Any(key, value))
	}

	if success {
		logger.Info("Authentication operation completed")
	} else {
		logger.Warn("Authentication operation failed")
	}
}

// LogError logs an error with appropriate context and channel
func (cl *ChanneledLogger) LogError(channel Channel, operation string, err error, tenantID string, metadata map[string]any) {
	logger := cl.GetChannel(channel).With(
		slog.String("operation", operation),
		slog.String("tenantId", tenantID),
		slog.String("error", err.Error()),
	)
	for key, value := range metadata {
		logger = logger.With(slog.Any(key, value))
	}

	logger.Error("Operation failed")
}

// LogStartupPhase logs application startup phases
func (cl *ChanneledLogger) LogStartupPhase(phase string, duration time.Duration, success bool, metadata map[string]any) {
	logger := cl.Startup().With(
		slog.String("phase", phase),
		slog.Duration("duration", duration),
		slog.Bool("success", success),
	)
	for key, value := range metadata {
		logger = logger.With(slog.Any(key, value))
	}

	if success {
		logger.Info("Startup phase completed")
	} else {
		logger.Error("Startup phase failed")
	}
}

// Close closes the per-channel log files.
func (cl *ChanneledLogger) Close() error {
	cl.configMu.Lock()
	defer cl.configMu.Unlock()

	var firstErr error
	for channel, file := range cl.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(cl.files, channel)
	}
	return firstErr
}

// SetChannelLevel dynamically sets the log level for a specific channel
func (cl *ChanneledLogger) SetChannelLevel(channel Channel, level slog.Level) error {
	cl.configMu.Lock()

	if _, exists := cl.channels[channel]; !exists {
		cl.configMu.Unlock()
		return fmt.Errorf("channel %s does not exist", channel)
	}

	cl.config.ChannelLevels[channel] = level
	newLogger, err := cl.createChannelLogger(channel)
	if err != nil {
		cl.configMu.Unlock()
		return fmt.Errorf("failed to recreate logger for channel %s: %w", channel, err)
	}
	cl.channels[channel] = newLogger
	cl.configMu.Unlock()

	cl.System().Info("Channel log level updated dynamically",
		slog.String("channel", string(channel)),
		slog.String("level", level.String()),
	)
	return nil
}

// GetChannelLevels returns the current log levels for all channels.
func (cl *ChanneledLogger) GetChannelLevels() map[string]string {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()

	levels := make(map[string]string)
	for channel := range cl.channels {
		if level, ok := cl.config.ChannelLevels[channel]; ok {
			levels[string(channel)] = level.String()
		} else {
			levels[string(channel)] = cl.config.DefaultLevel.String()
		}
	}
	return levels
}

// ParseLevel maps LOG_LEVEL style strings onto slog levels.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
