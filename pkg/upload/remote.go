package upload

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// remoteFS is the subset of remote file operations the uploader needs.
type remoteFS interface {
	MkdirAll(dir string) error
	WriteFile(destination string, src io.Reader, size int64, mode fs.FileMode) error
	Close() error
}

// openRemote prefers the sftp subsystem and falls back to scp and a remote
// shell when the server does not offer it, as stock dropbear does.
func openRemote(log *slog.Logger, conn *ssh.Client) remoteFS {
	client, err := sftp.NewClient(conn)
	if err == nil {
		return &sftpRemote{client: client}
	}
	log.Warn("sftp unavailable, falling back to scp", "error", err)
	return &scpRemote{conn: conn}
}

type sftpRemote struct {
	client *sftp.Client
}

func (r *sftpRemote) MkdirAll(dir string) error {
	return r.client.MkdirAll(dir)
}

func (r *sftpRemote) WriteFile(destination string, src io.Reader, _ int64, mode fs.FileMode) error {
	dstFile, err := r.client.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	if _, err := io.Copy(dstFile, src); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return r.client.Chmod(destination, mode.Perm())
}

func (r *sftpRemote) Close() error {
	return r.client.Close()
}

// scpRemote runs one session per operation over an existing connection.
type scpRemote struct {
	conn *ssh.Client
}

func (r *scpRemote) MkdirAll(dir string) error {
	session, err := r.conn.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() { _ = session.Close() }()

	if out, err := session.CombinedOutput("mkdir -p " + shellEscape(dir)); err != nil {
		return fmt.Errorf("mkdir -p %s: %w: %s", dir, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (r *scpRemote) WriteFile(destination string, src io.Reader, size int64, mode fs.FileMode) error {
	session, err := r.conn.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() { _ = session.Close() }()

	stdin, err := session.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return err
	}
	if err := session.Start("scp -t " + shellEscape(destination)); err != nil {
		return fmt.Errorf("failed to start scp: %w", err)
	}
	ack := bufio.NewReader(stdout)
	if err := readSCPAck(ack); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(stdin, "C%04o %d %s\n", uint32(mode.Perm()), size, path.Base(destination)); err != nil {
		return fmt.Errorf("failed to send scp header: %w", err)
	}
	if err := readSCPAck(ack); err != nil {
		return err
	}
	if _, err := io.CopyN(stdin, src, size); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if _, err := stdin.Write([]byte{0}); err != nil {
		return fmt.Errorf("failed to finish scp transfer: %w", err)
	}
	if err := readSCPAck(ack); err != nil {
		return err
	}
	_ = stdin.Close()
	if err := session.Wait(); err != nil {
		return fmt.Errorf("scp: %w", err)
	}
	return nil
}

func (r *scpRemote) Close() error {
	return nil
}

// readSCPAck reads one scp status byte. 1 and 2 carry a message line.
func readSCPAck(r *bufio.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("scp: %w", err)
	}
	if b == 0 {
		return nil
	}
	msg, _ := r.ReadString('\n')
	return fmt.Errorf("scp: %s", strings.TrimSpace(msg))
}

func shellEscape(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
