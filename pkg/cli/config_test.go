package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "http://localhost:8080", Output: "table"},
			"staging": {Host: "https://staging.example.com", Principal: "ci", Output: "json"},
		},
	}

	assert.Equal(t, "http://localhost:8080", cfg.ActiveProfile("").Host)
	assert.Equal(t, "https://staging.example.com", cfg.ActiveProfile("staging").Host)
	assert.Equal(t, "ci", cfg.ActiveProfile("staging").Principal)
	assert.Equal(t, Profile{}, cfg.ActiveProfile("nonexistent"))
}

func TestLoadSaveUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &UserConfig{
		CurrentProfile: "test",
		Profiles: map[string]Profile{
			"test": {Host: "http://test:8080", Principal: "alice"},
		},
	}
	require.NoError(t, SaveUserConfig(cfg))

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", loaded.CurrentProfile)
	assert.Equal(t, "http://test:8080", loaded.Profiles["test"].Host)
	assert.Equal(t, "alice", loaded.Profiles["test"].Principal)
}

func TestLoadUserConfig_Missing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := LoadUserConfig()
	require.Error(t, err)
}
