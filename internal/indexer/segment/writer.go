// Package segment persists index generations. A generation is written into a
// fresh directory, made durable, and only then published by atomically
// replacing the CURRENT pointer, so readers see either the previous
// generation or the new one in full.
package segment

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Sidecar is an extra file stored inside a generation directory, such as the
// spell dictionary derived from the index.
type Sidecar interface {
	FileName() string
	Save(path string) error
}

type Writer struct {
	dataDir string
	now     func() time.Time
	logger  *slog.Logger
}

func NewWriter(dataDir string) *Writer {
	return &Writer{
		dataDir: dataDir,
		now:     time.Now,
		logger:  slog.Default().With("component", "segment-writer", "data_dir", dataDir),
	}
}

func (w *Writer) DataDir() string {
	return w.dataDir
}

// NextGeneration returns one more than the highest generation present,
// including abandoned temporary directories, so a new build never reuses a
// directory name.
func (w *Writer) NextGeneration() (uint64, error) {
	gens, err := listGenerations(w.dataDir)
	if err != nil {
		return 0, err
	}
	if len(gens) == 0 {
		return 1, nil
	}
	return gens[len(gens)-1].gen + 1, nil
}

// Commit writes idx and its sidecars as generation idx.Generation() and
// makes it current. It fails with ErrGenerationBusy when another writer owns
// that generation. On any failure the previously current generation stays
// live and the partial directory is removed.
func (w *Writer) Commit(idx *index.Index, sidecars ...Sidecar) (*Manifest, error) {
	gen := idx.Generation()
	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	finalDir := filepath.Join(w.dataDir, genDirName(gen))
	tmpDir := finalDir + tmpSuffix
	if _, err := os.Stat(finalDir); err == nil {
		return nil, fmt.Errorf("%w: generation %d already committed", apperrors.ErrGenerationBusy, gen)
	}
	if err := os.Mkdir(tmpDir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: generation %d is being written", apperrors.ErrGenerationBusy, gen)
		}
		return nil, fmt.Errorf("creating generation directory: %w", err)
	}

	manifest, err := w.writeGeneration(tmpDir, idx, sidecars)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("publishing generation directory: %w", err)
	}
	if err := syncDir(w.dataDir); err != nil {
		return nil, fmt.Errorf("syncing data directory: %w", err)
	}
	if err := replaceFile(filepath.Join(w.dataDir, CurrentFile), []byte(genDirName(gen)+"\n")); err != nil {
		return nil, fmt.Errorf("swapping %s: %w", CurrentFile, err)
	}

	w.logger.Info("generation committed",
		"generation", gen,
		"docs", manifest.NumDocs,
		"terms", manifest.NumTerms,
	)
	return manifest, nil
}

func (w *Writer) writeGeneration(dir string, idx *index.Index, sidecars []Sidecar) (*Manifest, error) {
	data, err := Encode(idx)
	if err != nil {
		return nil, err
	}
	if err := writeFileSync(filepath.Join(dir, IndexFile), data); err != nil {
		return nil, fmt.Errorf("writing %s: %w", IndexFile, err)
	}

	m := &Manifest{
		Generation:  idx.Generation(),
		CreatedAt:   w.now().UTC(),
		NumDocs:     idx.NumDocs(),
		NumTerms:    idx.Dictionary().Len(),
		NumPostings: idx.Dictionary().NumPostings(),
		Analyzer:    idx.AnalyzerConfig(),
		Files:       make(map[string]FileInfo, 1+len(sidecars)),
	}
	names := []string{IndexFile}
	for _, s := range sidecars {
		path := filepath.Join(dir, s.FileName())
		if err := s.Save(path); err != nil {
			return nil, fmt.Errorf("writing %s: %w", s.FileName(), err)
		}
		names = append(names, s.FileName())
	}
	for _, name := range names {
		info, err := fileInfoOf(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("checksumming %s: %w", name, err)
		}
		m.Files[name] = info
	}

	encoded, err := m.encode()
	if err != nil {
		return nil, err
	}
	if err := writeFileSync(filepath.Join(dir, ManifestFile), encoded); err != nil {
		return nil, fmt.Errorf("writing %s: %w", ManifestFile, err)
	}
	if err := syncDir(dir); err != nil {
		return nil, fmt.Errorf("syncing generation directory: %w", err)
	}
	return m, nil
}

// ReplaceSidecar publishes a new version of one sidecar of the committed
// generation gen. The new version is written under a fresh file name and
// becomes visible only when the manifest naming it replaces the old one, so
// the generation stays loadable if any step fails. The version it supersedes
// is kept for readers still holding the previous manifest; older versions are
// removed.
func (w *Writer) ReplaceSidecar(gen uint64, s Sidecar) error {
	dir := filepath.Join(w.dataDir, genDirName(gen))
	m, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return fmt.Errorf("reading manifest of generation %d: %w", gen, err)
	}
	name := s.FileName()
	previous, had := m.FileFor(name)
	rev := m.Revision + 1
	file := revisionFile(name, rev)
	path := filepath.Join(dir, file)

	os.Remove(path)
	if err := s.Save(path); err != nil {
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", file, err)
	}
	info, err := fileInfoOf(path)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("checksumming %s: %w", file, err)
	}
	if err := syncDir(dir); err != nil {
		os.Remove(path)
		return fmt.Errorf("syncing generation directory: %w", err)
	}

	next := *m
	next.Revision = rev
	next.Files = maps.Clone(m.Files)
	if had {
		delete(next.Files, previous)
	}
	next.Files[file] = info
	next.Sidecars = maps.Clone(m.Sidecars)
	if next.Sidecars == nil {
		next.Sidecars = make(map[string]string, 1)
	}
	next.Sidecars[name] = file
	encoded, err := next.encode()
	if err != nil {
		os.Remove(path)
		return err
	}
	if err := replaceFile(filepath.Join(dir, ManifestFile), encoded); err != nil {
		os.Remove(path)
		return fmt.Errorf("replacing manifest: %w", err)
	}

	keep := map[string]bool{file: true}
	if had {
		keep[previous] = true
	}
	w.removeStaleRevisions(dir, name, keep)
	w.logger.Info("sidecar replaced", "generation", gen, "file", file, "revision", rev)
	return nil
}

// revisionFile names revision rev of a sidecar: spell.db becomes
// spell.db.r000003.
func revisionFile(name string, rev uint64) string {
	return fmt.Sprintf("%s.r%06d", name, rev)
}

func (w *Writer) removeStaleRevisions(dir, name string, keep map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("listing sidecar revisions", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		n := e.Name()
		if keep[n] || (n != name && !strings.HasPrefix(n, name+".r")) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, n)); err != nil {
			w.logger.Warn("removing stale sidecar", "file", n, "error", err)
		}
	}
}

// Prune keeps the current generation plus the newest retain-1 committed
// generations below it, and deletes the rest together with abandoned
// temporary directories older than the current generation. Directories newer
// than CURRENT belong to an in-flight build and are left alone.
func (w *Writer) Prune(retain int) ([]string, error) {
	current, ok, err := readCurrent(w.dataDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	retain = max(retain, 1)
	gens, err := listGenerations(w.dataDir)
	if err != nil {
		return nil, err
	}

	var removed []string
	kept := 0
	for i := len(gens) - 1; i >= 0; i-- {
		g := gens[i]
		if g.gen > current {
			continue
		}
		if g.tmp {
			if g.gen < current {
				removed = append(removed, g.name)
			}
			continue
		}
		if kept < retain {
			kept++
			continue
		}
		removed = append(removed, g.name)
	}
	for _, name := range removed {
		if err := os.RemoveAll(filepath.Join(w.dataDir, name)); err != nil {
			return nil, fmt.Errorf("removing %s: %w", name, err)
		}
		w.logger.Info("generation pruned", "dir", name)
	}
	return removed, nil
}
