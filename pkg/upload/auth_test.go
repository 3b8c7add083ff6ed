package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfig(t *testing.T) {
	log := testLogger()

	t.Run("password", func(t *testing.T) {
		cfg, err := ClientConfig(log, domain.Router{Host: "r1", Port: 22, Username: "admin", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, "admin", cfg.User)
		assert.Equal(t, "r1", cfg.Host)
		assert.Equal(t, domain.DefaultDialTimeout, cfg.Timeout)
		assert.Len(t, cfg.Auth, 2)
		assert.NotNil(t, cfg.HostKeyCallback)
	})

	t.Run("key file", func(t *testing.T) {
		keyPath, _ := writeClientKey(t)
		cfg, err := ClientConfig(log, domain.Router{Host: "r1", Port: 22, KeyFile: keyPath})
		require.NoError(t, err)
		assert.Len(t, cfg.Auth, 1)
	})

	t.Run("unreadable key file", func(t *testing.T) {
		_, err := ClientConfig(log, domain.Router{Host: "r1", KeyFile: filepath.Join(t.TempDir(), "nope")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("garbage key file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "id")
		require.NoError(t, os.WriteFile(path, []byte("not a key"), 0600))
		_, err := ClientConfig(log, domain.Router{Host: "r1", KeyFile: path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse key file")
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := ClientConfig(log, domain.Router{Host: "r1"})
		assert.ErrorIs(t, err, domain.ErrNoAuthMethod)
	})

	t.Run("missing known hosts", func(t *testing.T) {
		_, err := ClientConfig(log, domain.Router{Host: "r1", Password: "pw", KnownHosts: filepath.Join(t.TempDir(), "known_hosts")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load known hosts")
	})
}
