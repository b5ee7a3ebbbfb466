package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heredity/internal/codec"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "potters.csv", "name,mother,father,trait\nHarry,Lily,James,\nJames,,,1\nLily,,,0\n")
	writeFile(t, dir, "lily.yaml", "individuals:\n  - name: Lily\n    trait: false\n")
	writeFile(t, dir, "notes.txt", "not a pedigree")
	writeFile(t, dir, ".hidden.csv", "name,mother,father,trait\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	sources, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "lily", sources[0].Name)
	assert.Equal(t, "yaml", sources[0].Format)
	assert.Len(t, sources[0].Individuals, 1)

	assert.Equal(t, "potters", sources[1].Name)
	assert.Equal(t, "csv", sources[1].Format)
	assert.Len(t, sources[1].Individuals, 3)
	assert.True(t, filepath.IsAbs(sources[1].Path))
}

func TestLoadDirStopsOnBadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", "{")

	_, err := LoadDir(dir)
	assert.Error(t, err)

	_, err = LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestIDForPathIsStable(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "name,mother,father,trait\nLily,,,\n")
	b := writeFile(t, dir, "b.csv", "name,mother,father,trait\nLily,,,\n")

	first, err := LoadFile(a)
	require.NoError(t, err)
	again, err := LoadFile(a)
	require.NoError(t, err)
	other, err := LoadFile(b)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestLoadFileUnknownExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "family.xml", "<family/>")
	_, err := LoadFile(path)
	assert.ErrorIs(t, err, codec.ErrUnknownFormat)
}
