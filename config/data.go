package config

import (
	"errors"

	"github.com/kilianp07/derval/pkg/export"
)

// DataConfig locates the scenario input files. Relative paths are resolved
// against the directory of the config file.
type DataConfig struct {
	TimeSeries string `json:"timeseries"`
	Monthly    string `json:"monthly"`
	// Fleet is an optional YAML file with extra resources.
	Fleet string `json:"fleet"`
}

// Validate checks mandatory fields.
func (c DataConfig) Validate() error {
	if c.TimeSeries == "" {
		return errors.New("data.timeseries is required")
	}
	return nil
}

// OutputConfig selects where reports are written.
type OutputConfig struct {
	Dir    string `json:"dir"`
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
	if c.Format == "" {
		c.Format = export.FormatCSV
	}
}

// Validate checks the format is supported.
func (c OutputConfig) Validate() error {
	if !export.ValidFormat(c.Format) {
		return errors.New("output.format must be csv or json")
	}
	return nil
}
