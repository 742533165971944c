// Package knowledge is the excerpt source the prompt builder grounds
// generation in: a small YAML-backed lookup of age-band guidance and
// per-issue notes.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultData []byte

// Base is an immutable, pure lookup. Load it once at startup.
type Base struct {
	bands  []ageBand
	issues map[string]string
}

type ageBand struct {
	MinMonths int    `yaml:"min_months"`
	MaxMonths int    `yaml:"max_months"`
	Guidance  string `yaml:"guidance"`
}

type baseFile struct {
	AgeBands []ageBand         `yaml:"age_bands"`
	Issues   map[string]string `yaml:"issues"`
}

// Load reads a knowledge base from a YAML file.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return parse(data)
}

// Default returns the knowledge base compiled into the binary.
func Default() *Base {
	b, err := parse(defaultData)
	if err != nil {
		// The embedded file is validated by tests; a parse failure here is a
		// build defect.
		panic(fmt.Sprintf("embedded knowledge base: %v", err))
	}
	return b
}

func parse(data []byte) (*Base, error) {
	var file baseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	if len(file.AgeBands) == 0 {
		return nil, fmt.Errorf("knowledge base has no age bands")
	}
	return &Base{bands: file.AgeBands, issues: file.Issues}, nil
}

// Excerpt returns the guidance for an age plus, when known, the note for the
// main issue. issue may be "" for none.
func (b *Base) Excerpt(ageMonths int, issue string) string {
	var parts []string

	for _, band := range b.bands {
		if ageMonths >= band.MinMonths && ageMonths <= band.MaxMonths {
			parts = append(parts, strings.TrimSpace(band.Guidance))
			break
		}
	}
	if len(parts) == 0 {
		// Out-of-band ages fall back to the last (oldest) band.
		parts = append(parts, strings.TrimSpace(b.bands[len(b.bands)-1].Guidance))
	}

	if note, ok := b.issues[issue]; ok {
		parts = append(parts, strings.TrimSpace(note))
	}

	return strings.Join(parts, "\n")
}
