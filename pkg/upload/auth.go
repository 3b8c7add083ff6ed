package upload

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Rudd3r/nftroute/pkg/domain"
	sshpkg "github.com/Rudd3r/nftroute/pkg/ssh"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ClientConfig turns a router entry into SSH connection settings. Password
// authentication takes precedence over a key file.
func ClientConfig(log *slog.Logger, router domain.Router) (*domain.SSHClientConfig, error) {
	cfg := &domain.SSHClientConfig{
		User:    router.Username,
		Host:    router.Host,
		Port:    router.Port,
		Timeout: domain.DefaultDialTimeout,
	}

	switch {
	case router.Password != "":
		cfg.Auth = sshpkg.PasswordAuth(router.Password)
	case router.KeyFile != "":
		signer, err := loadKey(router.KeyFile)
		if err != nil {
			return nil, err
		}
		cfg.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	default:
		return nil, fmt.Errorf("%s: %w", router.Host, domain.ErrNoAuthMethod)
	}

	if router.KnownHosts != "" {
		path, err := domain.ExpandHome(router.KnownHosts)
		if err != nil {
			return nil, err
		}
		callback, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		cfg.HostKeyCallback = callback
	} else {
		log.Warn("host key not verified, set known_hosts to pin it", "host", router.Host)
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return cfg, nil
}

func loadKey(keyFile string) (ssh.Signer, error) {
	path, err := domain.ExpandHome(keyFile)
	if err != nil {
		return nil, err
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parse key file %s: %w", path, err)
	}
	return signer, nil
}
