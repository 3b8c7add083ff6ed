package domain

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	DefaultSSHPort     = 22
	DefaultSSHUser     = "admin"
	DefaultDialTimeout = 10 * time.Second
)

var (
	ErrMissingSection = errors.New("missing required config section")
	ErrNoAuthMethod   = errors.New("authentication method not specified")
	ErrInvalidRouter  = errors.New("invalid router")
)

type SSHClientConfig struct {
	User            string
	Host            string
	Port            int
	Timeout         time.Duration
	Auth            []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
}

// Router is one upload target. Exactly one of Password or KeyFile selects the
// authentication method; Password wins when both are set.
type Router struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	KeyFile    string `yaml:"key_file"`
	KnownHosts string `yaml:"known_hosts"`
}

func (r *Router) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type FileMapping struct {
	LocalPath   string   `yaml:"local_path"`
	RemotePaths []string `yaml:"remote_paths"`
}

// UploadManifest describes which local files go to which paths on every router.
type UploadManifest struct {
	Routers      []Router      `yaml:"routers"`
	FileMappings []FileMapping `yaml:"file_mappings"`
}

// ApplyDefaults fills in the port and user name of routers that omit them.
func (m *UploadManifest) ApplyDefaults() {
	for i := range m.Routers {
		if m.Routers[i].Port == 0 {
			m.Routers[i].Port = DefaultSSHPort
		}
		if m.Routers[i].Username == "" {
			m.Routers[i].Username = DefaultSSHUser
		}
	}
}

func (m *UploadManifest) Validate() error {
	for i, r := range m.Routers {
		if r.Host == "" {
			return fmt.Errorf("%w: routers[%d] has no host", ErrInvalidRouter, i)
		}
		if r.Port < 0 || r.Port > 65535 {
			return fmt.Errorf("%w: routers[%d] port %d out of range", ErrInvalidRouter, i, r.Port)
		}
		if r.Password == "" && r.KeyFile == "" {
			return fmt.Errorf("routers[%d] (%s): %w", i, r.Host, ErrNoAuthMethod)
		}
	}
	for i, fm := range m.FileMappings {
		if fm.LocalPath == "" {
			return fmt.Errorf("file_mappings[%d]: local_path is empty", i)
		}
	}
	return nil
}
