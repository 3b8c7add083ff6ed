package mocks

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHServer is a loopback SSH server speaking the sftp subsystem plus the
// "mkdir -p" and "scp -t" commands. Remote paths map directly onto the local
// filesystem.
type SSHServer struct {
	Host    string
	Port    int
	HostKey ssh.PublicKey

	user           string
	password       string
	authorizedKeys []ssh.PublicKey
	listener       net.Listener
	wg             sync.WaitGroup

	noSFTP atomic.Bool
	execs  atomic.Int32

	mu     sync.Mutex
	logins int
}

// NewSSHServer starts a server accepting user with the given password (if
// not empty) or any of the authorized keys. It is shut down on test cleanup.
func NewSSHServer(t testing.TB, user, password string, authorized ...ssh.PublicKey) *SSHServer {
	if !testing.Testing() {
		panic(fmt.Errorf("NewSSHServer cannot be used outside test"))
	}
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(listener.Addr().String())
	portNum, _ := strconv.Atoi(port)

	s := &SSHServer{
		Host:           host,
		Port:           portNum,
		HostKey:        signer.PublicKey(),
		user:           user,
		password:       password,
		authorizedKeys: authorized,
		listener:       listener,
	}

	config := &ssh.ServerConfig{
		PasswordCallback:  s.passwordCallback,
		PublicKeyCallback: s.publicKeyCallback,
	}
	config.AddHostKey(signer)

	s.wg.Add(1)
	go s.acceptConnections(config)

	t.Cleanup(func() {
		_ = s.listener.Close()
		s.wg.Wait()
	})
	return s
}

func (s *SSHServer) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Logins returns the number of successfully authenticated connections.
func (s *SSHServer) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// DisableSFTP makes the server refuse the sftp subsystem, leaving only the
// shell commands.
func (s *SSHServer) DisableSFTP() {
	s.noSFTP.Store(true)
}

// Execs returns the number of exec requests served.
func (s *SSHServer) Execs() int {
	return int(s.execs.Load())
}

func (s *SSHServer) passwordCallback(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
	if s.password != "" && conn.User() == s.user && string(password) == s.password {
		return nil, nil
	}
	return nil, fmt.Errorf("password rejected for %q", conn.User())
}

func (s *SSHServer) publicKeyCallback(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	if conn.User() == s.user {
		for _, k := range s.authorizedKeys {
			if bytes.Equal(k.Marshal(), key.Marshal()) {
				return nil, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown public key for %q", conn.User())
}

func (s *SSHServer) acceptConnections(config *ssh.ServerConfig) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConnection(conn, config)
	}
}

func (s *SSHServer) handleConnection(conn net.Conn, config *ssh.ServerConfig) {
	defer func() { _ = conn.Close() }()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer func() { _ = sshConn.Close() }()

	s.mu.Lock()
	s.logins++
	s.mu.Unlock()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(channel, requests)
	}
}

func (s *SSHServer) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "subsystem":
			var msg struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &msg); err != nil || msg.Name != "sftp" || s.noSFTP.Load() {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go handleSFTP(channel)
		case "exec":
			var msg struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &msg); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			s.execs.Add(1)
			go handleExec(channel, msg.Command)
		default:
			_ = req.Reply(false, nil)
		}
	}
}

func handleSFTP(channel ssh.Channel) {
	defer func() { _ = channel.Close() }()

	server, err := sftp.NewServer(channel)
	if err != nil {
		return
	}
	defer func() { _ = server.Close() }()

	_ = server.Serve()
}

func handleExec(channel ssh.Channel, command string) {
	defer func() { _ = channel.Close() }()

	var err error
	switch {
	case strings.HasPrefix(command, "mkdir -p "):
		err = os.MkdirAll(shellUnquote(strings.TrimPrefix(command, "mkdir -p ")), 0755)
		if err != nil {
			_, _ = fmt.Fprintln(channel.Stderr(), err)
		}
	case strings.HasPrefix(command, "scp -t "):
		err = scpSink(channel, shellUnquote(strings.TrimPrefix(command, "scp -t ")))
		if err != nil {
			_, _ = fmt.Fprintf(channel, "\x02%v\n", err)
		}
	default:
		err = fmt.Errorf("unsupported command %q", command)
		_, _ = fmt.Fprintln(channel.Stderr(), err)
	}

	status := struct{ Status uint32 }{}
	if err != nil {
		status.Status = 1
	}
	_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(&status))
}

// scpSink receives a single file in scp sink mode and writes it to target.
func scpSink(channel ssh.Channel, target string) error {
	in := bufio.NewReader(channel)
	ack := func() error {
		_, err := channel.Write([]byte{0})
		return err
	}
	if err := ack(); err != nil {
		return err
	}
	header, err := in.ReadString('\n')
	if err != nil {
		return err
	}
	var (
		mode uint32
		size int64
		name string
	)
	if _, err := fmt.Sscanf(header, "C%o %d %s", &mode, &size, &name); err != nil {
		return fmt.Errorf("bad scp header %q: %w", header, err)
	}
	if err := ack(); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(mode))
	if err != nil {
		return err
	}
	if _, err := io.CopyN(f, in, size); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if b, err := in.ReadByte(); err != nil || b != 0 {
		return fmt.Errorf("missing end of file marker")
	}
	return ack()
}

func shellUnquote(arg string) string {
	if len(arg) >= 2 && strings.HasPrefix(arg, "'") && strings.HasSuffix(arg, "'") {
		return strings.ReplaceAll(arg[1:len(arg)-1], `'\''`, "'")
	}
	return arg
}
