package target

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// CargoManifestFile is the package manifest cargo reads from the source tree root.
const CargoManifestFile = "Cargo.toml"

type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Bin []struct {
		Name string `toml:"name"`
	} `toml:"bin"`
}

// BinaryNameFromManifest returns the binary cargo will produce for the
// package rooted at dir: the first [[bin]] name, else the [package] name.
// It returns "" and a nil error when dir has no Cargo.toml.
func BinaryNameFromManifest(dir string) (string, error) {
	p := filepath.Join(dir, CargoManifestFile)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", p, err)
	}

	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parsing %s: %w", p, err)
	}

	for _, b := range m.Bin {
		if b.Name != "" {
			return b.Name, nil
		}
	}
	return m.Package.Name, nil
}
