package bypass

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/Rudd3r/nftroute/pkg/domain"
)

// WriteDirectives writes one nftset directive per domain, each terminated by
// a newline. With sorted set the domains are emitted in lexical order,
// otherwise in set iteration order.
func WriteDirectives(w io.Writer, set *domain.DomainSet, setName string, sorted bool) (int, error) {
	bw := bufio.NewWriter(w)
	var n int
	write := func(d string) error {
		if _, err := bw.WriteString(domain.Directive(d, setName)); err != nil {
			return err
		}
		n++
		return bw.WriteByte('\n')
	}
	if sorted {
		for _, d := range set.Sorted() {
			if err := write(d); err != nil {
				return n, err
			}
		}
	} else {
		for d := range set.All() {
			if err := write(d); err != nil {
				return n, err
			}
		}
	}
	return n, bw.Flush()
}

// Build renders the bypass set and stores it under name. A failed write is
// logged and returned; the caller decides whether to continue.
func Build(log *slog.Logger, storage domain.Storage, name string, set *domain.DomainSet, setName string, sorted bool) (int, error) {
	var buf bytes.Buffer
	n, err := WriteDirectives(&buf, set, setName, sorted)
	if err != nil {
		return 0, fmt.Errorf("render directives: %w", err)
	}
	if err = storage.WriteFile(name, domain.FileInfo{FName: name, FMode: domain.ArtifactMode}, &buf); err != nil {
		log.Error("cannot write bypass config", "file", name, "error", err)
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	log.Info("bypass config created", "file", name, "directives", n)
	return n, nil
}
