package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GITDUMP_JOBS", "32")
	t.Setenv("GITDUMP_RETRIES", "5")
	t.Setenv("GITDUMP_TIMEOUT", "30")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Jobs)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	t.Setenv("GITDUMP_JOBS", "32")

	v := NewViper()
	v.Set(KeyJobs, 2)
	v.Set(KeyTimeout, "1500ms")
	v.Set(KeyKeep, true)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Jobs)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.Keep)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero jobs", mutate: func(c *Config) { c.Jobs = 0 }},
		{name: "zero retries", mutate: func(c *Config) { c.Retries = 0 }},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }},
		{name: "force and keep", mutate: func(c *Config) { c.Force, c.Keep = true, true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	v := NewViper()
	v.Set(KeyTimeout, "soon")
	_, err := Load(v)
	assert.Error(t, err)
}
