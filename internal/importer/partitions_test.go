package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegulationFiles(t *testing.T) {
	paths := RegulationFiles("data", []string{"g", "H", " "}, []string{"", "ja"})
	assert.Equal(t, []string{
		filepath.Join("data", "regulation-G.json"),
		filepath.Join("data", "regulation-G-ja.json"),
		filepath.Join("data", "regulation-H.json"),
		filepath.Join("data", "regulation-H-ja.json"),
	}, paths)

	assert.Equal(t, filepath.Join("d", "regulation-F.json"), RegulationFile("d", "F", "en"))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "import.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
strategy: composite
regulations: [G]
languages: ["", ja]
files: [promos.json, /abs/extra.json]
all_cards: true
`), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, dir, m.DataDir)
	assert.Equal(t, "composite", m.Strategy)
	assert.Equal(t, DefaultProgressEvery, m.ProgressEvery)
	assert.Equal(t, []string{
		filepath.Join(dir, "regulation-G.json"),
		filepath.Join(dir, "regulation-G-ja.json"),
		filepath.Join(dir, "promos.json"),
		"/abs/extra.json",
		filepath.Join(dir, AllCardsFile),
	}, m.Paths())
}

func TestLoadManifestRejectsUnknownStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: fuzzy\n"), 0644))

	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "unknown key strategy")
}
