package upload

import (
	"fmt"
	"io"
	"os"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"gopkg.in/yaml.v3"
)

// LoadManifest reads and validates the upload manifest at path.
func LoadManifest(path string) (*domain.UploadManifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := ParseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes a manifest, applies router defaults and validates it.
// Both top-level sections must be present, even if empty.
func ParseManifest(r io.Reader) (*domain.UploadManifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	for _, key := range []string{"routers", "file_mappings"} {
		if _, ok := sections[key]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingSection, key)
		}
	}

	m := &domain.UploadManifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
