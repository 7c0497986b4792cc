package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const AllCardsFile = "all-cards.json"

// RegulationFile names the partition holding one regulation mark's cards.
// An empty lang means the default (English) partition.
func RegulationFile(dataDir, regulation, lang string) string {
	name := "regulation-" + strings.ToUpper(strings.TrimSpace(regulation))
	if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" && lang != "en" {
		name += "-" + lang
	}
	return filepath.Join(dataDir, name+".json")
}

// RegulationFiles expands every regulation for every language, regulation
// major. langs may be empty for the default partition only.
func RegulationFiles(dataDir string, regulations, langs []string) []string {
	if len(langs) == 0 {
		langs = []string{""}
	}
	paths := make([]string, 0, len(regulations)*len(langs))
	for _, reg := range regulations {
		if strings.TrimSpace(reg) == "" {
			continue
		}
		for _, lang := range langs {
			paths = append(paths, RegulationFile(dataDir, reg, lang))
		}
	}
	return paths
}

// Manifest describes an import run in YAML:
//
//	data_dir: ./data
//	strategy: auto
//	progress_every: 100
//	regulations: [F, G, H]
//	languages: ["", ja]
//	files: [extra/promos.json]
//	all_cards: false
type Manifest struct {
	DataDir       string   `yaml:"data_dir"`
	Strategy      string   `yaml:"strategy"`
	ProgressEvery int      `yaml:"progress_every"`
	Regulations   []string `yaml:"regulations"`
	Languages     []string `yaml:"languages"`
	Files         []string `yaml:"files"`
	AllCards      bool     `yaml:"all_cards"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.DataDir == "" {
		m.DataDir = filepath.Dir(path)
	}
	if m.ProgressEvery == 0 {
		m.ProgressEvery = DefaultProgressEvery
	}
	if _, err := ParseStrategy(m.Strategy); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// Paths lists the manifest's input files in run order: regulation
// partitions, then explicit files, then the all-cards dump. Relative
// explicit files resolve against DataDir.
func (m *Manifest) Paths() []string {
	paths := RegulationFiles(m.DataDir, m.Regulations, m.Languages)
	for _, f := range m.Files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(m.DataDir, f)
		}
		paths = append(paths, f)
	}
	if m.AllCards {
		paths = append(paths, filepath.Join(m.DataDir, AllCardsFile))
	}
	return paths
}
