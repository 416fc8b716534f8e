// Package params holds the fixed thresholds and constants used while
// building and screening a copy-number reference.
package params

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BackgroundName is the gene name carried by antitarget bins.
const BackgroundName = "Background"

// ReferenceSampleID is the sample identifier of every built reference.
const ReferenceSampleID = "reference"

// ErrInvalid is returned when a parameter file holds an unusable value.
var ErrInvalid = errors.New("invalid parameter")

// Params are the constants consumed by the reference builder and the
// probe quality filter.
type Params struct {
	// Expected insert size, used as the margin of the edge-density key.
	InsertSize int `yaml:"insert_size"`
	// Bins with a log2 value below this fail the coverage filter.
	MinBinCoverage float64 `yaml:"min_bin_coverage"`
	// Bins with a spread above this fail the dispersion filter.
	MaxBinSpread float64 `yaml:"max_bin_spread"`
	// Bins with a repeat-masked fraction above this fail the repeat filter.
	MaxRepeatFraction float64 `yaml:"max_repeat_fraction"`
	// log2 value assigned to bins without any coverage.
	NullLog2Coverage float64 `yaml:"null_log2_coverage"`
	// Relative window width of the windowed bias correction.
	WindowFraction float64 `yaml:"window_fraction"`
}

// Default returns the built-in parameters.
func Default() Params {
	return Params{
		InsertSize:        250,
		MinBinCoverage:    -5.0,
		MaxBinSpread:      1.0,
		MaxRepeatFraction: 0.99,
		NullLog2Coverage:  -20.0,
		WindowFraction:    0.1,
	}
}

// Load reads parameters from a YAML file. Keys absent from the file keep
// their default value.
func Load(path string) (Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate checks that every parameter is in its usable range.
func (p Params) Validate() error {
	if p.InsertSize <= 0 {
		return fmt.Errorf("%w: insert_size must be positive, got %d", ErrInvalid, p.InsertSize)
	}
	if p.MaxBinSpread <= 0 {
		return fmt.Errorf("%w: max_bin_spread must be positive, got %g", ErrInvalid, p.MaxBinSpread)
	}
	if p.MaxRepeatFraction <= 0 || p.MaxRepeatFraction > 1 {
		return fmt.Errorf("%w: max_repeat_fraction must be in (0, 1], got %g", ErrInvalid, p.MaxRepeatFraction)
	}
	if p.WindowFraction <= 0 || p.WindowFraction >= 1 {
		return fmt.Errorf("%w: window_fraction must be in (0, 1), got %g", ErrInvalid, p.WindowFraction)
	}
	if p.NullLog2Coverage >= p.MinBinCoverage {
		return fmt.Errorf("%w: null_log2_coverage must be below min_bin_coverage", ErrInvalid)
	}
	return nil
}

// Resolve returns the defaults for an empty path and Load(path) otherwise.
func Resolve(path string) (Params, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
