package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
)

// manifest lists the documents an answer may cite. File paths are relative
// to the manifest's directory.
type manifest struct {
	Documents []manifestEntry `yaml:"documents"`
}

type manifestEntry struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	RawText string `yaml:"raw_text"`
	// TextFile supplies RawText from disk
	TextFile string `yaml:"text_file"`
	// File holds the original bytes, e.g. the PDF itself
	File string `yaml:"file"`
}

func loadManifest(path string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	docs := make([]document.Document, 0, len(m.Documents))
	for i, e := range m.Documents {
		if e.Name == "" {
			return nil, fmt.Errorf("manifest entry %d has no name", i)
		}
		d := document.Document{
			ID:      e.ID,
			Name:    e.Name,
			Kind:    document.ParseKind(e.Kind),
			RawText: e.RawText,
		}
		if d.ID == "" {
			d.ID = fmt.Sprintf("doc-%d", i+1)
		}
		if e.Kind == "" {
			d.Kind = document.ParseKind(strings.TrimPrefix(filepath.Ext(e.Name), "."))
		}
		if e.TextFile != "" {
			b, err := os.ReadFile(resolve(base, e.TextFile))
			if err != nil {
				return nil, fmt.Errorf("manifest entry %s: %w", e.Name, err)
			}
			d.RawText = string(b)
		}
		if e.File != "" {
			b, err := os.ReadFile(resolve(base, e.File))
			if err != nil {
				return nil, fmt.Errorf("manifest entry %s: %w", e.Name, err)
			}
			d.Binary = document.Bytes(b)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
