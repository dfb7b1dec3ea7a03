package artifactsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local reads manifest.json/catalog.json from an already-resolved
// directory on disk — the default Source.
type Local struct {
	Dir string
}

// NewLocal returns a Source reading from dir.
func NewLocal(dir string) *Local {
	return &Local{Dir: dir}
}

func (l *Local) ReadManifest(ctx context.Context) ([]byte, error) {
	return l.read(ManifestFilename)
}

func (l *Local) ReadCatalog(ctx context.Context) ([]byte, error) {
	return l.read(CatalogFilename)
}

func (l *Local) read(name string) ([]byte, error) {
	path := filepath.Join(l.Dir, name)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
