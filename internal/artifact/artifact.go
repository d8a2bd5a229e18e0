// Package artifact inspects the binary a build produced.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when the artifact path does not name a regular file.
var ErrNotFound = errors.New("artifact not found")

const bytesPerMegabyte = 1024 * 1024

// SizeReport describes the size of a built artifact.
type SizeReport struct {
	// Path is the artifact path as displayed to the operator.
	Path      string
	Bytes     int64
	Megabytes float64
}

// String renders the report as "<path> size: <N.NN> MB".
func (r *SizeReport) String() string {
	return fmt.Sprintf("%s size: %.2f MB", r.Path, r.Megabytes)
}

// Fields returns the report as structured log fields.
func (r *SizeReport) Fields() logrus.Fields {
	return logrus.Fields{
		"path":      r.Path,
		"bytes":     r.Bytes,
		"megabytes": fmt.Sprintf("%.2f", r.Megabytes),
	}
}

// ReportSize stats the file at path. display is the path shown in the
// report; if empty, path is used.
func ReportSize(path, display string) (*SizeReport, error) {
	if display == "" {
		display = path
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, display)
	}
	if err != nil {
		return nil, fmt.Errorf("inspecting artifact %s: %w", display, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, display)
	}

	return &SizeReport{
		Path:      display,
		Bytes:     info.Size(),
		Megabytes: float64(info.Size()) / bytesPerMegabyte,
	}, nil
}
