package bypass

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/Rudd3r/nftroute/pkg/domain"
)

// Merge joins the ad-block rules and the bypass directives with a single
// newline between them.
func Merge(adblock, directives []byte) []byte {
	out := make([]byte, 0, len(adblock)+1+len(directives))
	out = append(out, adblock...)
	out = append(out, '\n')
	return append(out, directives...)
}

// MergeFiles reads the two inputs from storage and writes their merge to
// output, replacing any previous content. An unreadable input is logged and
// merged as empty.
func MergeFiles(log *slog.Logger, storage domain.Storage, adblockName, bypassName, output string) error {
	adblock := readOrEmpty(log, storage, adblockName)
	directives := readOrEmpty(log, storage, bypassName)

	merged := Merge(adblock, directives)
	if err := storage.WriteFile(output, domain.FileInfo{FName: output, FMode: domain.ArtifactMode}, bytes.NewReader(merged)); err != nil {
		log.Error("cannot write combined config", "file", output, "error", err)
		return fmt.Errorf("write %s: %w", output, err)
	}
	log.Info("combined config created", "file", output, "bytes", len(merged))
	return nil
}

func readOrEmpty(log *slog.Logger, storage domain.Storage, name string) []byte {
	if name == "" {
		return nil
	}
	rc, err := storage.Open(name)
	if err != nil {
		log.Error("cannot read merge input, using empty content", "file", name, "error", err)
		return nil
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		log.Error("cannot read merge input, using empty content", "file", name, "error", err)
		return nil
	}
	return data
}
