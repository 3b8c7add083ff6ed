package domain

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfigDir(t *testing.T) {
	t.Run("returns valid config directory", func(t *testing.T) {
		dir, err := UserConfigDir()
		require.NoError(t, err)
		assert.NotEmpty(t, dir)
	})

	t.Run("env var takes precedence", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/opt/nftroute")

		dir, err := UserConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/opt/nftroute", dir)
	})

	t.Run("respects XDG_CONFIG_HOME on linux", func(t *testing.T) {
		if runtime.GOOS != "linux" {
			t.Skip("skipping linux-specific test")
		}
		t.Setenv(EnvConfigDir, "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/test-config")

		dir, err := UserConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/tmp/test-config", AppName), dir)
	})
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// existing directory is fine
	require.NoError(t, EnsureDir(dir))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.ssh/id_ed25519", filepath.Join(home, ".ssh", "id_ed25519")},
		{"/etc/keys/router", "/etc/keys/router"},
		{"relative/key", "relative/key"},
		{"~other/key", "~other/key"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandHome(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
