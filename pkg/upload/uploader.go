package upload

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Rudd3r/nftroute/pkg/domain"
	sshpkg "github.com/Rudd3r/nftroute/pkg/ssh"
	"golang.org/x/crypto/ssh"
)

type Dialer func(ctx context.Context, cfg *domain.SSHClientConfig) (*ssh.Client, error)

type Options struct {
	// DryRun logs the planned transfers without connecting to any router.
	DryRun bool
	Dial   Dialer
}

// Uploader pushes the files of a manifest to every router, one router at a time.
type Uploader struct {
	log    *slog.Logger
	dial   Dialer
	dryRun bool
}

func NewUploader(log *slog.Logger, opts Options) *Uploader {
	dial := opts.Dial
	if dial == nil {
		dial = sshpkg.Dial
	}
	return &Uploader{log: log, dial: dial, dryRun: opts.DryRun}
}

type Transfer struct {
	Router string
	Local  string
	Remote string
	Err    error
}

type Report struct {
	Transfers []Transfer
	// Unreachable maps router addresses to the connection error.
	Unreachable map[string]error
	// Skipped lists local paths that did not exist.
	Skipped []string
}

func (r *Report) Failed() int {
	n := len(r.Unreachable)
	for _, t := range r.Transfers {
		if t.Err != nil {
			n++
		}
	}
	return n
}

func (r *Report) OK() bool {
	return r.Failed() == 0
}

// RemoteTarget resolves the destination for local. A remote path ending in
// "/" names a directory that receives the file under its own base name.
func RemoteTarget(local, remote string) string {
	if strings.HasSuffix(remote, "/") {
		return path.Join(remote, filepath.Base(local))
	}
	return remote
}

// Upload copies every mapping to every router. Per-router and per-file
// failures are logged and recorded in the report; only a cancelled context
// produces an error.
func (u *Uploader) Upload(ctx context.Context, m *domain.UploadManifest) (*Report, error) {
	report := &Report{Unreachable: make(map[string]error)}
	for _, router := range m.Routers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		log := u.log.With("router", router.Addr())
		if u.dryRun {
			u.plan(log, router, m.FileMappings, report)
			continue
		}
		if err := u.uploadRouter(ctx, log, router, m.FileMappings, report); err != nil {
			log.Error("cannot connect to router", "error", err)
			report.Unreachable[router.Addr()] = err
		}
	}
	return report, ctx.Err()
}

func (u *Uploader) plan(log *slog.Logger, router domain.Router, mappings []domain.FileMapping, report *Report) {
	for _, fm := range mappings {
		if _, err := os.Stat(fm.LocalPath); err != nil {
			log.Warn("local file not found, skipping", "local", fm.LocalPath, "error", err)
			report.Skipped = append(report.Skipped, fm.LocalPath)
			continue
		}
		for _, remote := range fm.RemotePaths {
			target := RemoteTarget(fm.LocalPath, remote)
			log.Info("would upload", "local", fm.LocalPath, "remote", target)
			report.Transfers = append(report.Transfers, Transfer{Router: router.Addr(), Local: fm.LocalPath, Remote: target})
		}
	}
}

func (u *Uploader) uploadRouter(ctx context.Context, log *slog.Logger, router domain.Router, mappings []domain.FileMapping, report *Report) error {
	cfg, err := ClientConfig(log, router)
	if err != nil {
		return err
	}
	conn, err := u.dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	files := openRemote(log, conn)
	defer func() { _ = files.Close() }()
	log.Info("connected")

	for _, fm := range mappings {
		info, err := os.Stat(fm.LocalPath)
		if err != nil {
			log.Warn("local file not found, skipping", "local", fm.LocalPath, "error", err)
			report.Skipped = append(report.Skipped, fm.LocalPath)
			continue
		}
		for _, remote := range fm.RemotePaths {
			if ctx.Err() != nil {
				return nil
			}
			target := RemoteTarget(fm.LocalPath, remote)
			err := copyToRemote(files, fm.LocalPath, target, info)
			if err != nil {
				log.Error("upload failed", "local", fm.LocalPath, "remote", target, "error", err)
			} else {
				log.Info("uploaded", "local", fm.LocalPath, "remote", target)
			}
			report.Transfers = append(report.Transfers, Transfer{Router: router.Addr(), Local: fm.LocalPath, Remote: target, Err: err})
		}
	}
	return nil
}

func copyToRemote(remote remoteFS, source, destination string, info fs.FileInfo) error {
	if info.IsDir() {
		return copyDirToRemote(remote, source, destination)
	}
	return copyFileToRemote(remote, source, destination, info)
}

func copyFileToRemote(remote remoteFS, source, destination string, info fs.FileInfo) error {
	if dir := path.Dir(destination); dir != "." && dir != "/" {
		if err := remote.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
		}
	}

	srcFile, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = srcFile.Close() }()

	return remote.WriteFile(destination, srcFile, info.Size(), info.Mode())
}

func copyDirToRemote(remote remoteFS, source, destination string) error {
	return filepath.WalkDir(source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}
		remotePath := path.Join(destination, filepath.ToSlash(rel))
		if d.IsDir() {
			if err := remote.MkdirAll(remotePath); err != nil {
				return fmt.Errorf("failed to create remote directory %s: %w", remotePath, err)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFileToRemote(remote, p, remotePath, info)
	})
}
