package segment

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// Manifest describes a committed generation.
type Manifest struct {
	Generation  uint64                `json:"generation"`
	CreatedAt   time.Time             `json:"created_at"`
	NumDocs     int                   `json:"num_docs"`
	NumTerms    int                   `json:"num_terms"`
	NumPostings int                   `json:"num_postings"`
	Analyzer    config.AnalyzerConfig `json:"analyzer"`
	Files       map[string]FileInfo   `json:"files"`
	// Sidecars maps a sidecar name to the file currently holding it. A name
	// absent here is stored under its own name.
	Sidecars map[string]string `json:"sidecars,omitempty"`
	Revision uint64            `json:"revision,omitempty"`
}

// FileFor returns the file inside the generation directory that holds name.
func (m *Manifest) FileFor(name string) (string, bool) {
	if file, ok := m.Sidecars[name]; ok {
		return file, true
	}
	_, ok := m.Files[name]
	return name, ok
}

// FileInfo lets Open detect a truncated or altered generation file.
type FileInfo struct {
	Size  int64  `json:"size"`
	CRC32 uint32 `json:"crc32"`
}

func fileInfoOf(path string) (FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileInfo{}, err
	}
	defer f.Close()
	h := crc32.NewIEEE()
	n, err := io.Copy(h, f)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: n, CRC32: h.Sum32()}, nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, corruptf("parsing manifest: %v", err)
	}
	return &m, nil
}

func (m *Manifest) encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return data, nil
}
