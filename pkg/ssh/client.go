package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"golang.org/x/crypto/ssh"
)

// Dial opens an authenticated SSH connection. The timeout in cfg bounds both
// the TCP connect and the SSH handshake.
func Dial(ctx context.Context, cfg *domain.SSHClientConfig) (*ssh.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultDialTimeout
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))

	connection, chans, reqs, err := ssh.NewClientConn(
		conn,
		addr,
		&ssh.ClientConfig{
			Config:          ssh.Config{},
			User:            cfg.User,
			Auth:            cfg.Auth,
			HostKeyCallback: cfg.HostKeyCallback,
			Timeout:         timeout,
		},
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(connection, chans, reqs), nil
}

// PasswordAuth offers the password both as plain password authentication and
// as the answer to keyboard-interactive prompts, which some embedded SSH
// servers require instead.
func PasswordAuth(password string) []ssh.AuthMethod {
	return []ssh.AuthMethod{
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	}
}
