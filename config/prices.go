package config

import (
	"fmt"

	"github.com/kilianp07/derval/auth"
)

// PriceFeedConfig describes an external price signal that replaces one
// time-series column of the value streams before a run.
type PriceFeedConfig struct {
	Connector string    `json:"connector"`
	URL       string    `json:"url"`
	Column    string    `json:"column"`
	Scale     float64   `json:"scale"`
	Auth      auth.Conf `json:"auth"`
}

// SetDefaults applies default values.
func (c *PriceFeedConfig) SetDefaults() {
	if c.Connector == "" {
		c.Connector = "wholesale_market"
	}
	if c.Scale == 0 {
		c.Scale = 1
	}
}

// Validate checks the feed names a column.
func (c PriceFeedConfig) Validate() error {
	if c.Column == "" {
		return fmt.Errorf("price feed %s: column is required", c.Connector)
	}
	return nil
}
