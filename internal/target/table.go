package target

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/absurd-lang/relbuild/internal/platform"
	"go.yaml.in/yaml/v3"
)

//go:embed targets.yaml
var defaultTableBytes []byte

// Entry is one row of the target table.
type Entry struct {
	OS            platform.OS   `yaml:"os"`
	Arch          platform.Arch `yaml:"arch"`
	Triple        string        `yaml:"triple,omitempty"`
	InstallTriple string        `yaml:"install_triple,omitempty"`
	OutputSubpath string        `yaml:"output_subpath"`
	Strip         bool          `yaml:"strip,omitempty"`
}

// Platform returns the (OS, arch) key of the entry.
func (e Entry) Platform() platform.Platform {
	return platform.Platform{OS: e.OS, Arch: e.Arch}
}

// Table is a validated set of target entries keyed by platform.
type Table struct {
	Entries []Entry `yaml:"targets"`
	byKey   map[platform.Platform]int
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
	defaultTableErr  error
)

// DefaultTable returns the embedded target table, loading it on first use.
func DefaultTable() (*Table, error) {
	defaultTableOnce.Do(func() {
		defaultTable, defaultTableErr = LoadTable(defaultTableBytes)
		if defaultTableErr != nil {
			defaultTableErr = fmt.Errorf("loading embedded target table: %w", defaultTableErr)
		}
	})
	return defaultTable, defaultTableErr
}

// LoadTable validates data against the table schema and parses it. A schema
// violation is returned as a *SchemaError. Duplicate (os, arch) pairs are
// rejected.
func LoadTable(data []byte) (*Table, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &SchemaError{Issues: result.Issues}
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing target table: %w", err)
	}

	t.byKey = make(map[platform.Platform]int, len(t.Entries))
	for i, e := range t.Entries {
		key := e.Platform()
		if prev, ok := t.byKey[key]; ok {
			return nil, fmt.Errorf("duplicate target entry for %s (entries %d and %d)", key, prev, i)
		}
		t.byKey[key] = i
	}
	return &t, nil
}

// Lookup returns the entry for p.
func (t *Table) Lookup(p platform.Platform) (Entry, bool) {
	i, ok := t.byKey[p]
	if !ok {
		return Entry{}, false
	}
	return t.Entries[i], true
}

// Platforms returns the keys of the table in declaration order.
func (t *Table) Platforms() []platform.Platform {
	out := make([]platform.Platform, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Platform()
	}
	return out
}
