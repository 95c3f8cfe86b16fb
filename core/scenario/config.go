package scenario

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Window sizes accepted by Config.Window besides a number of hours.
const (
	WindowDay   = "day"
	WindowMonth = "month"
	WindowYear  = "year"
)

// Config holds the scenario level settings shared by every value stream.
type Config struct {
	// DT is the time step in hours.
	DT float64 `json:"dt"`
	// Years are the calendar years of the optimization horizon.
	Years []int `json:"years"`
	// LoadGrowth is the site load growth in %/yr applied to missing years.
	LoadGrowth float64 `json:"load_growth"`
	// Window is the optimization sub-window: "day", "month", "year" or a
	// number of hours.
	Window string `json:"window"`
	// Annuity scales every objective term.
	Annuity float64 `json:"annuity"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.DT == 0 {
		c.DT = 1
	}
	if c.Window == "" {
		c.Window = WindowDay
	}
	if c.Annuity == 0 {
		c.Annuity = 1
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.DT <= 0 {
		return errors.New("scenario.dt must be positive")
	}
	if len(c.Years) == 0 {
		return errors.New("scenario.years must list at least one year")
	}
	seen := make(map[int]struct{}, len(c.Years))
	for _, y := range c.Years {
		if _, ok := seen[y]; ok {
			return fmt.Errorf("scenario.years lists %d twice", y)
		}
		seen[y] = struct{}{}
	}
	if _, err := parseWindow(c.Window); err != nil {
		return err
	}
	return nil
}

// windowSpec is either a calendar grouping or a fixed number of hours.
type windowSpec struct {
	calendar string
	hours    float64
}

func parseWindow(s string) (windowSpec, error) {
	switch w := strings.ToLower(strings.TrimSpace(s)); w {
	case WindowDay, WindowMonth, WindowYear:
		return windowSpec{calendar: w}, nil
	case "":
		return windowSpec{calendar: WindowDay}, nil
	default:
		h, err := strconv.ParseFloat(w, 64)
		if err != nil || h <= 0 {
			return windowSpec{}, fmt.Errorf("scenario.window %q: want day, month, year or a positive number of hours", s)
		}
		return windowSpec{hours: h}, nil
	}
}
