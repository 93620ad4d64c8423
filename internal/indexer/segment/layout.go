package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// On-disk layout of a data directory:
//
//	CURRENT            name of the live generation directory
//	gen-000007/        committed generation
//	    index.spdx
//	    spell.db
//	    manifest.json
//	gen-000008.tmp/    generation being written (or abandoned)
const (
	CurrentFile  = "CURRENT"
	IndexFile    = "index.spdx"
	ManifestFile = "manifest.json"
	genPrefix    = "gen-"
	tmpSuffix    = ".tmp"
)

func genDirName(gen uint64) string {
	return fmt.Sprintf("%s%06d", genPrefix, gen)
}

// parseGenDir recognises "gen-NNNNNN" and "gen-NNNNNN.tmp".
func parseGenDir(name string) (gen uint64, tmp bool, ok bool) {
	if !strings.HasPrefix(name, genPrefix) {
		return 0, false, false
	}
	rest := strings.TrimPrefix(name, genPrefix)
	if strings.HasSuffix(rest, tmpSuffix) {
		tmp = true
		rest = strings.TrimSuffix(rest, tmpSuffix)
	}
	gen, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false, false
	}
	return gen, tmp, true
}

type genEntry struct {
	gen  uint64
	tmp  bool
	name string
}

// listGenerations returns every generation directory, committed or not, in
// ascending generation order.
func listGenerations(dataDir string) ([]genEntry, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dataDir, err)
	}
	var gens []genEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if gen, tmp, ok := parseGenDir(e.Name()); ok {
			gens = append(gens, genEntry{gen: gen, tmp: tmp, name: e.Name()})
		}
	}
	sort.Slice(gens, func(i, j int) bool {
		if gens[i].gen != gens[j].gen {
			return gens[i].gen < gens[j].gen
		}
		return !gens[i].tmp
	})
	return gens, nil
}

// readCurrent returns the generation CURRENT points to; ok is false when
// there is no CURRENT file yet.
func readCurrent(dataDir string) (gen uint64, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(dataDir, CurrentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("reading %s: %w", CurrentFile, err)
	}
	name := strings.TrimSpace(string(data))
	gen, tmp, valid := parseGenDir(name)
	if !valid || tmp {
		return 0, false, fmt.Errorf("%s names %q", CurrentFile, name)
	}
	return gen, true, nil
}

// writeFileSync writes data to path and fsyncs it.
func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncDir makes renames inside dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// replaceFile atomically swaps path's content via a sibling temp file.
func replaceFile(path string, data []byte) error {
	tmp := path + tmpSuffix
	if err := writeFileSync(tmp, data); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return syncDir(filepath.Dir(path))
}
