package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  driver: sqlite3
  dsn: file:signals.db
auth:
  jwt_secret: secret
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, RoleAll, c.App.Role)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, 60*time.Second, c.Cache.SignalTTL)
	assert.Equal(t, 50, c.Worker.CandleWindow)
	assert.Equal(t, 6, c.Queue.RetryLimit)
	assert.Equal(t, "signals.generated", c.Kafka.Topics.Signals)
	assert.Equal(t, time.Duration(0), c.Worker.ProcessingDelay)
	assert.True(t, c.RunsAPI())
	assert.True(t, c.RunsWorker())
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(minimalYAML + `
app:
  role: worker
worker:
  processing_delay: 5s
cache:
  backend: memory
  signal_ttl: 30s
`))
	require.NoError(t, err)

	assert.Equal(t, RoleWorker, c.App.Role)
	assert.Equal(t, 5*time.Second, c.Worker.ProcessingDelay)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 30*time.Second, c.Cache.SignalTTL)
	assert.False(t, c.RunsAPI())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing dsn", "database:\n  driver: sqlite3\nauth:\n  jwt_secret: s\n"},
		{"unknown driver", "database:\n  driver: mysql\n  dsn: x\nauth:\n  jwt_secret: s\n"},
		{"missing secret for api", "database:\n  driver: sqlite3\n  dsn: x\n"},
		{"unknown role", minimalYAML + "app:\n  role: batch\n"},
		{"unknown cache backend", minimalYAML + "cache:\n  backend: disk\n"},
		{"kafka without brokers", minimalYAML + "kafka:\n  enabled: true\n"},
		{"clickhouse without kafka", minimalYAML + "clickhouse:\n  enabled: true\n"},
		{"tiny candle window", minimalYAML + "worker:\n  candle_window: 5\n"},
		{"retries end before claim timeout", minimalYAML + "queue:\n  retry_limit: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestRetryScheduleOnlyMattersForWorkers(t *testing.T) {
	short := "database:\n  driver: sqlite3\n  dsn: x\nauth:\n  jwt_secret: s\nqueue:\n  retry_limit: 2\n"
	_, err := Parse([]byte(short + "app:\n  role: api\n"))
	require.NoError(t, err)

	_, err = Parse([]byte(short + "worker:\n  claim_timeout: 20s\n"))
	require.NoError(t, err)
}

func TestWorkerRoleDoesNotNeedSecret(t *testing.T) {
	_, err := Parse([]byte("app:\n  role: worker\ndatabase:\n  driver: sqlite3\n  dsn: x\n"))
	require.NoError(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	env := map[string]string{
		"APP_ROLE":                "api",
		"HTTP_PORT":               "9090",
		"DATABASE_DSN":            "postgres://localhost/signals",
		"DATABASE_DRIVER":         "postgres",
		"REDIS_ADDR":              "redis:6379",
		"KAFKA_BROKERS":           "k1:9092,k2:9092",
		"WORKER_PROCESSING_DELAY": "250ms",
	}
	require.NoError(t, c.applyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, RoleAPI, c.App.Role)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "postgres", c.Database.Driver)
	assert.Equal(t, "postgres://localhost/signals", c.Database.DSN)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, c.Worker.ProcessingDelay)
	require.NoError(t, c.Validate())
}

func TestApplyEnvRejectsBadPort(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	err = c.applyEnv(func(k string) string {
		if k == "HTTP_PORT" {
			return "eighty"
		}
		return ""
	})
	require.Error(t, err)
}
