// Package loader handles script and driver file loading operations.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/retroenv/psgtracker/internal/driver"
	"github.com/retroenv/psgtracker/internal/options"
	"github.com/retroenv/psgtracker/internal/script"
)

// Loader handles loading script and driver files from disk.
type Loader struct{}

// New creates a new file loader.
func New() *Loader {
	return &Loader{}
}

// Load reads the script source of the input file.
func (l *Loader) Load(opts options.Program) (string, error) {
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return "", fmt.Errorf("reading script file %s: %w", opts.Input, err)
	}
	return string(data), nil
}

// LoadDriver returns the driver described by the script. Relative driver
// file names are resolved against the directory of the script. Without a
// driver table the built-in stub driver is returned.
func (l *Loader) LoadDriver(scriptFile string, spec *script.DriverSpec) (*driver.Driver, error) {
	if spec == nil {
		return driver.Stub(), nil
	}

	name := spec.File
	if !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(scriptFile), name)
	}

	code, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading driver file %s: %w", name, err)
	}

	drv, err := driver.New(filepath.Base(name), code, spec.Relocs, spec.VibratoOffset)
	if err != nil {
		return nil, fmt.Errorf("loading driver %s: %w", name, err)
	}
	return drv, nil
}
