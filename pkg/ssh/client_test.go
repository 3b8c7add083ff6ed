package ssh

import (
	"context"
	"testing"
	"time"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/Rudd3r/nftroute/pkg/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestDial(t *testing.T) {
	srv := mocks.NewSSHServer(t, "admin", "secret")

	t.Run("password", func(t *testing.T) {
		client, err := Dial(context.Background(), &domain.SSHClientConfig{
			User:            "admin",
			Host:            srv.Host,
			Port:            srv.Port,
			Auth:            PasswordAuth("secret"),
			HostKeyCallback: ssh.FixedHostKey(srv.HostKey),
		})
		require.NoError(t, err)
		defer func() { _ = client.Close() }()
		assert.Equal(t, "admin", client.User())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := Dial(context.Background(), &domain.SSHClientConfig{
			User:            "admin",
			Host:            srv.Host,
			Port:            srv.Port,
			Timeout:         2 * time.Second,
			Auth:            PasswordAuth("nope"),
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ssh handshake")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Dial(ctx, &domain.SSHClientConfig{
			User:            "admin",
			Host:            srv.Host,
			Port:            srv.Port,
			Auth:            PasswordAuth("secret"),
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPasswordAuth(t *testing.T) {
	methods := PasswordAuth("pw")
	require.Len(t, methods, 2)
}
