package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: 8080},
		Cache:     CacheConfig{MaxSize: 10000, DefaultTTL: time.Minute},
		Telemetry: TelemetryConfig{Sink: "console"},
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
}

func TestValidate_RejectsNegativeCacheSize(t *testing.T) {
	c := validConfig()
	c.Cache.MaxSize = -1
	require.Error(t, c.Validate())
}

func TestValidate_RejectsNonPositiveTTL(t *testing.T) {
	c := validConfig()
	c.Cache.DefaultTTL = 0
	require.Error(t, c.Validate())
}

func TestValidate_RejectsUnknownTelemetrySink(t *testing.T) {
	c := validConfig()
	c.Telemetry.Sink = "kafka"
	require.Error(t, c.Validate())
}

func TestValidate_RejectsFileSinkWithoutPath(t *testing.T) {
	c := validConfig()
	c.Telemetry.Sink = "file"
	require.Error(t, c.Validate())

	c.Telemetry.FilePath = "/var/log/resolverd/usage.log"
	require.NoError(t, c.Validate())
}

func TestValidate_RejectsNonPositivePort(t *testing.T) {
	c := validConfig()
	c.Server.Port = 0
	require.Error(t, c.Validate())
}

func TestEnsureSecrets_GeneratesWhenAllTokensEmpty(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.ensureSecrets())

	require.NotEmpty(t, c.Security.SubmitToken)
	require.NotEmpty(t, c.Security.ApproveToken)
	require.NotEqual(t, c.Security.SubmitToken, c.Security.ApproveToken)
}

func TestEnsureSecrets_LeavesExplicitTokenAlone(t *testing.T) {
	c := validConfig()
	c.Security.SubmitToken = "my-submit-token"
	require.NoError(t, c.ensureSecrets())

	require.Equal(t, "my-submit-token", c.Security.SubmitToken)
	require.NotEmpty(t, c.Security.ApproveToken, "approve_token must be generated independently of submit_token")
}

func TestEnsureSecrets_GeneratesPerTokenEvenWithLegacySet(t *testing.T) {
	c := validConfig()
	c.Security.LegacyToken = "legacy-token"
	require.NoError(t, c.ensureSecrets())

	require.Equal(t, "legacy-token", c.Security.LegacyToken)
	require.NotEmpty(t, c.Security.SubmitToken)
	require.NotEmpty(t, c.Security.ApproveToken)
}
