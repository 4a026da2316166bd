package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
)

func newBufferLogger(t *testing.T) (*ChanneledLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := NewChanneledLogger(&LoggerConfig{
		Extra:        &buf,
		JSONFormat:   true,
		DefaultLevel: slog.LevelDebug,
	})
	require.NoError(t, err)
	return logger, &buf
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	return record
}

func TestLogMarker(t *testing.T) {
	logger, buf := newBufferLogger(t)

	logger.LogMarker(&performance.Marker{Operation: "media:copy", TenantID: "beta", Duration: 2 * time.Millisecond, Success: true})
	record := decodeRecord(t, buf)
	assert.Equal(t, string(ChannelPerf), record["channel"])
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "media:copy", record["operation"])
	assert.Equal(t, "beta", record["tenantId"])
	assert.Equal(t, true, record["success"])

	buf.Reset()
	logger.LogMarker(&performance.Marker{Operation: "duplicate:cross_tenant", TenantID: "beta", Error: "boom"})
	record = decodeRecord(t, buf)
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "boom", record["error"])
}

func TestSetChannelLevelSilencesChannel(t *testing.T) {
	logger, buf := newBufferLogger(t)
	require.NoError(t, logger.SetChannelLevel(ChannelPerf, slog.LevelWarn))
	buf.Reset()

	logger.LogMarker(&performance.Marker{Operation: "media:copy", Success: true})
	assert.Empty(t, buf.String())
	assert.Equal(t, "WARN", logger.GetChannelLevels()[string(ChannelPerf)])

	assert.Error(t, logger.SetChannelLevel(Channel("nope"), slog.LevelInfo))
}

func TestLogSlowQueryTruncates(t *testing.T) {
	logger, buf := newBufferLogger(t)

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	logger.LogSlowQuery(string(long), time.Second, "alpha")
	record := decodeRecord(t, buf)
	assert.Equal(t, string(ChannelSlowQuery), record["channel"])
	assert.Len(t, record["query"], 503)
}
