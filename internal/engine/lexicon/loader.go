package lexicon

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads every .yaml/.yml file in dir, merges their sections into one
// ruleset and validates it. Files are merged in filename order so a ruleset
// can be split by concern (abbreviations.yaml, diseases.yaml, ...). The
// last file that sets a version wins. Load fails fast on unreadable files,
// malformed YAML and any validation problem; a broken ruleset is never
// returned.
func Load(dir string) (*Lexicon, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read ruleset directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("lexicon: no .yaml rule files in %s", dir)
	}
	sort.Strings(files)

	merged := &Lexicon{}
	for _, name := range files {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("lexicon: read %s: %w", path, err)
		}
		var part Lexicon
		if err := yaml.Unmarshal(raw, &part); err != nil {
			return nil, fmt.Errorf("lexicon: parse %s: %w", path, err)
		}
		mergeInto(merged, &part)
	}
	if merged.Version == "" {
		merged.Version = filepath.Base(dir)
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// ParseBytes builds a validated single-document ruleset from raw YAML.
// Used by the lexicon CLI and by tests.
func ParseBytes(raw []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(raw, &lex); err != nil {
		return nil, fmt.Errorf("lexicon: parse ruleset: %w", err)
	}
	if lex.Version == "" {
		lex.Version = "unversioned"
	}
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

func mergeInto(dst, src *Lexicon) {
	if src.Version != "" {
		dst.Version = src.Version
	}
	dst.Expansions = append(dst.Expansions, src.Expansions...)
	dst.Symptoms = append(dst.Symptoms, src.Symptoms...)
	dst.Composites = append(dst.Composites, src.Composites...)
	dst.Thresholds = append(dst.Thresholds, src.Thresholds...)
	dst.Diseases = append(dst.Diseases, src.Diseases...)
	dst.RedFlags = append(dst.RedFlags, src.RedFlags...)
}
