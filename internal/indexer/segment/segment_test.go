package segment

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var plain = config.AnalyzerConfig{Stemmer: "none", StopWords: "none", MinTokenLength: 1}

func testIndex(gen uint64, texts ...string) *index.Index {
	b := index.NewBuilder()
	for i, text := range texts {
		var toks []analyzer.Token
		for pos, w := range strings.Fields(text) {
			toks = append(toks, analyzer.Token{Term: w, Position: pos})
		}
		b.Add(index.AnalyzedDocument{
			Stored:   map[string]string{index.FieldPath: filepath.Join("docs", string(rune('a'+i))+".txt")},
			Modified: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
			Fields:   []index.FieldTokens{{Field: "contents", Tokens: toks}},
		})
	}
	return b.Build(gen, plain)
}

type fileSidecar struct {
	name string
	body string
	err  error
}

func (f fileSidecar) FileName() string { return f.name }

func (f fileSidecar) Save(path string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(path, []byte(f.body), 0o644)
}

func TestCommitAndOpen(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	gen, err := w.NextGeneration()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)

	m, err := w.Commit(testIndex(gen, "the cat sat", "the dog"), fileSidecar{name: "spell.db", body: "words"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumDocs)
	assert.Contains(t, m.Files, "spell.db")

	g, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g.Index.Generation())
	assert.Equal(t, plain, g.Index.AnalyzerConfig())
	assert.Equal(t, 2, g.Index.DocFreq(index.Term{Field: "contents", Text: "the"}))
	doc, ok := g.Index.Doc(1)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), doc.Modified)
	assert.FileExists(t, g.Path("spell.db"))

	current, err := CurrentGeneration(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), current)
}

func TestOpenWithoutIndex(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, apperrors.ErrNoIndex)
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(testIndex(4, "x y z", "y z"))
	require.NoError(t, err)
	b, err := Encode(testIndex(4, "x y z", "y z"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeDetectsDamage(t *testing.T) {
	data, err := Encode(testIndex(2, "alpha beta", "beta gamma"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"flipped body byte", func(b []byte) []byte { b[HeaderSize+3] ^= 0xff; return b }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 99; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-20] }},
		{"too short", func(b []byte) []byte { return b[:10] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.mutate(append([]byte(nil), data...)))
			assert.ErrorIs(t, err, apperrors.ErrIndexCorrupt)
		})
	}
}

func TestOpenDetectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	_, err := w.Commit(testIndex(1, "one two three"))
	require.NoError(t, err)

	path := filepath.Join(dir, genDirName(1), IndexFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)/2] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open(dir)
	assert.ErrorIs(t, err, apperrors.ErrIndexCorrupt)
}

func TestCommitBusy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, genDirName(1)+tmpSuffix), 0o755))

	_, err := NewWriter(dir).Commit(testIndex(1, "a"))
	assert.ErrorIs(t, err, apperrors.ErrGenerationBusy)

	next, err := NewWriter(dir).NextGeneration()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
}

func TestFailedCommitKeepsPreviousGeneration(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	_, err := w.Commit(testIndex(1, "old text"))
	require.NoError(t, err)

	_, err = w.Commit(testIndex(2, "new text"), fileSidecar{name: "spell.db", err: errors.New("disk full")})
	require.Error(t, err)

	g, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g.Index.Generation())
	assert.Equal(t, 1, g.Index.DocFreq(index.Term{Field: "contents", Text: "old"}))
	assert.NoDirExists(t, filepath.Join(dir, genDirName(2)+tmpSuffix))
	assert.NoDirExists(t, filepath.Join(dir, genDirName(2)))
}

func TestReplaceSidecar(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	_, err := w.Commit(testIndex(1, "a b"), fileSidecar{name: "spell.db", body: "v1"})
	require.NoError(t, err)
	genDir := filepath.Join(dir, genDirName(1))

	require.NoError(t, w.ReplaceSidecar(1, fileSidecar{name: "spell.db", body: "version two"}))

	g, err := Open(dir)
	require.NoError(t, err)
	assert.True(t, g.Has("spell.db"))
	assert.Equal(t, filepath.Join(genDir, "spell.db.r000001"), g.Path("spell.db"))
	body, err := os.ReadFile(g.Path("spell.db"))
	require.NoError(t, err)
	assert.Equal(t, "version two", string(body))
	assert.Equal(t, int64(len("version two")), g.Manifest.Files["spell.db.r000001"].Size)
	assert.NotContains(t, g.Manifest.Files, "spell.db")
	assert.FileExists(t, filepath.Join(genDir, "spell.db"))

	require.NoError(t, w.ReplaceSidecar(1, fileSidecar{name: "spell.db", body: "three"}))
	g, err = Open(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g.Manifest.Revision)
	body, err = os.ReadFile(g.Path("spell.db"))
	require.NoError(t, err)
	assert.Equal(t, "three", string(body))
	assert.NoFileExists(t, filepath.Join(genDir, "spell.db"))
	assert.FileExists(t, filepath.Join(genDir, "spell.db.r000001"))
}

func TestReplaceSidecarLeavesReadersOnPreviousManifest(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	_, err := w.Commit(testIndex(1, "a b"), fileSidecar{name: "spell.db", body: "v1"})
	require.NoError(t, err)
	before, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, w.ReplaceSidecar(1, fileSidecar{name: "spell.db", body: "v2"}))

	body, err := os.ReadFile(before.Path("spell.db"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(body))
	got, err := fileInfoOf(before.Path("spell.db"))
	require.NoError(t, err)
	assert.Equal(t, before.Manifest.Files["spell.db"], got)
}

// blockManifestSwap occupies the manifest's temporary name with a non-empty
// directory so the manifest cannot be replaced.
func blockManifestSwap(t *testing.T, genDir string) {
	blocker := filepath.Join(genDir, ManifestFile+tmpSuffix)
	require.NoError(t, os.Mkdir(blocker, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "keep"), nil, 0o644))
}

func TestFailedReplaceSidecarKeepsGenerationLoadable(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, genDir string)
		sidecar fileSidecar
	}{
		{
			name:    "save fails",
			prepare: func(*testing.T, string) {},
			sidecar: fileSidecar{name: "spell.db", err: errors.New("disk full")},
		},
		{
			name:    "manifest swap fails",
			prepare: blockManifestSwap,
			sidecar: fileSidecar{name: "spell.db", body: "version two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			w := NewWriter(dir)
			_, err := w.Commit(testIndex(1, "a b"), fileSidecar{name: "spell.db", body: "v1"})
			require.NoError(t, err)
			genDir := filepath.Join(dir, genDirName(1))
			tt.prepare(t, genDir)

			require.Error(t, w.ReplaceSidecar(1, tt.sidecar))

			g, err := Open(dir)
			require.NoError(t, err)
			body, err := os.ReadFile(g.Path("spell.db"))
			require.NoError(t, err)
			assert.Equal(t, "v1", string(body))
			assert.Zero(t, g.Manifest.Revision)
			assert.NoFileExists(t, filepath.Join(genDir, "spell.db.r000001"))
		})
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	for gen := uint64(1); gen <= 4; gen++ {
		_, err := w.Commit(testIndex(gen, "text"))
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, genDirName(2)+tmpSuffix), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, genDirName(9)+tmpSuffix), 0o755))

	removed, err := w.Prune(2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{genDirName(1), genDirName(2), genDirName(2) + tmpSuffix}, removed)

	assert.DirExists(t, filepath.Join(dir, genDirName(3)))
	assert.DirExists(t, filepath.Join(dir, genDirName(4)))
	assert.DirExists(t, filepath.Join(dir, genDirName(9)+tmpSuffix))

	g, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), g.Index.Generation())
}

func TestParseGenDir(t *testing.T) {
	gen, tmp, ok := parseGenDir("gen-000012.tmp")
	assert.True(t, ok)
	assert.True(t, tmp)
	assert.Equal(t, uint64(12), gen)
	_, _, ok = parseGenDir("CURRENT")
	assert.False(t, ok)
}
