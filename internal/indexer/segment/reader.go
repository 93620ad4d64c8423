package segment

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Generation is a committed generation loaded from disk.
type Generation struct {
	Dir      string
	Manifest *Manifest
	Index    *index.Index
}

// Path returns the location of the file holding name inside the generation
// directory.
func (g *Generation) Path(name string) string {
	file, _ := g.Manifest.FileFor(name)
	return filepath.Join(g.Dir, file)
}

// Has reports whether the manifest lists name.
func (g *Generation) Has(name string) bool {
	_, ok := g.Manifest.FileFor(name)
	return ok
}

// Open loads the generation CURRENT points to. Without a CURRENT file it
// returns ErrNoIndex; any damage is ErrIndexCorrupt.
func Open(dataDir string) (*Generation, error) {
	gen, ok, err := readCurrent(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIndexCorrupt, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w in %s", apperrors.ErrNoIndex, dataDir)
	}
	return OpenGeneration(dataDir, gen)
}

// CurrentGeneration reports the generation number CURRENT points to without
// loading it.
func CurrentGeneration(dataDir string) (uint64, error) {
	gen, ok, err := readCurrent(dataDir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrIndexCorrupt, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w in %s", apperrors.ErrNoIndex, dataDir)
	}
	return gen, nil
}

// OpenGeneration loads a specific committed generation and verifies every
// file the manifest lists.
func OpenGeneration(dataDir string, gen uint64) (*Generation, error) {
	dir := filepath.Join(dataDir, genDirName(gen))
	m, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, corruptf("generation %d has no manifest", gen)
		}
		return nil, err
	}
	if m.Generation != gen {
		return nil, corruptf("manifest in %s claims generation %d", genDirName(gen), m.Generation)
	}
	for name, want := range m.Files {
		got, err := fileInfoOf(filepath.Join(dir, name))
		if err != nil {
			return nil, corruptf("generation %d: %s: %v", gen, name, err)
		}
		if got != want {
			return nil, corruptf("generation %d: %s does not match its manifest entry", gen, name)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, corruptf("generation %d: %v", gen, err)
	}
	idx, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("generation %d: %w", gen, err)
	}
	if idx.Generation() != gen {
		return nil, corruptf("index file in %s holds generation %d", genDirName(gen), idx.Generation())
	}
	return &Generation{Dir: dir, Manifest: m, Index: idx}, nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrIndexCorrupt, fmt.Sprintf(format, args...))
}
