package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "floodctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("floodctl", []string{"-db", ""})
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Capacity)
	assert.Equal(t, 0.2, cfg.Threshold)
	assert.Equal(t, "sum", cfg.Policy)
	assert.Equal(t, 10*time.Second, cfg.StatsPeriod)
	assert.Equal(t, "CC", cfg.NodeTag)
	assert.Equal(t, 9000, cfg.GRPCPort)
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, domain.DetectionConfig{Capacity: 5000, Threshold: 0.2, Policy: domain.AggregateSum}, cfg.Detection())
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv("FLOODCTL_CAPACITY", "100")
	t.Setenv("FLOODCTL_THRESHOLD", "0.5")
	t.Setenv("FLOODCTL_NODE", "env-node")
	t.Setenv("FLOODCTL_ORIGINS", "http://a, http://b")

	path := writeFile(t, `
threshold: 0.3
stats_period: 2s
node_tag: file-node
policy: max
`)

	cfg, err := Load("floodctl", []string{"-config", path, "-node", "flag-node", "-db", ""})
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Capacity, "env beats default")
	assert.Equal(t, 0.3, cfg.Threshold, "file beats env")
	assert.Equal(t, "flag-node", cfg.NodeTag, "flag beats file")
	assert.Equal(t, 2*time.Second, cfg.StatsPeriod)
	assert.Equal(t, "max", cfg.Policy)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.AllowedOrigins)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	t.Setenv("FLOODCTL_CONFIG", writeFile(t, "capacity: 42\n"))
	cfg, err := Load("floodctl", []string{"-db", ""})
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Capacity)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
		cause error
	}{
		{"zero capacity", []string{"-capacity", "0"}, "capacity", domain.ErrInvalidCapacity},
		{"capacity past uint32", []string{"-capacity", "4294967297"}, "capacity", domain.ErrInvalidCapacity},
		{"threshold above one", []string{"-threshold", "1.5"}, "threshold", domain.ErrInvalidThreshold},
		{"negative threshold", []string{"-threshold", "-0.1"}, "threshold", domain.ErrInvalidThreshold},
		{"zero period", []string{"-stats-period", "0s"}, "stats_period", domain.ErrInvalidPeriod},
		{"unknown policy", []string{"-policy", "median"}, "policy", domain.ErrInvalidPolicy},
		{"bad port", []string{"-grpc", "70000"}, "grpc_port", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("floodctl", append(tt.args, "-db", ""))
			require.Error(t, err)

			var cfgErr *domain.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestLoad_LargestCapacity(t *testing.T) {
	cfg, err := Load("floodctl", []string{"-capacity", "4294967295", "-db", ""})
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), cfg.Detection().Capacity)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load("floodctl", []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	_, err = Load("floodctl", []string{"-config", writeFile(t, "capacity: [1, 2"), "-db", ""})
	assert.Error(t, err)
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, err := Load("floodctl", []string{"-nope"})
	assert.Error(t, err)
}
