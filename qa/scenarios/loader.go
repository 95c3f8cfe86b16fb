// Package scenarios replays YAML described resource adequacy cases against
// the event scheduler.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/derval/core/factory"
	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/core/valuestream"
	"github.com/kilianp07/derval/infra/dataset"
)

type PeakDef struct {
	At string  `yaml:"at"`
	KW float64 `yaml:"kw"`
}

// ActiveDef flags the hours in [from_hour, to_hour) of every day as active.
type ActiveDef struct {
	FromHour int `yaml:"from_hour"`
	ToHour   int `yaml:"to_hour"`
}

type Expected struct {
	Starts             []string `yaml:"starts,omitempty"`
	StartCount         int      `yaml:"start_count"`
	Intervals          int      `yaml:"intervals"`
	IncludesPeaks      []string `yaml:"includes_peaks,omitempty"`
	ExcludesPeaks      []string `yaml:"excludes_peaks,omitempty"`
	QualifyingCapacity float64  `yaml:"qualifying_capacity"`
	Kind               string   `yaml:"kind"`
	Value              float64  `yaml:"value"`
}

type Scenario struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description,omitempty"`
	Year        int                    `yaml:"year"`
	DT          float64                `yaml:"dt"`
	BaseLoad    float64                `yaml:"base_load"`
	Peaks       []PeakDef              `yaml:"peaks,omitempty"`
	Active      *ActiveDef             `yaml:"active,omitempty"`
	RA          map[string]any         `yaml:"resource_adequacy"`
	Fleet       []factory.ModuleConfig `yaml:"fleet"`
	Expected    Expected               `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.DT <= 0 {
		sc.DT = 1
	}
	return &sc, nil
}

// Inputs builds the time-series table of the case: a flat base load with the
// listed peaks and, when configured, the active hour flags.
func (sc *Scenario) Inputs() (valuestream.Inputs, error) {
	index := timeseries.YearIndex(sc.Year, timeseries.Duration(sc.DT))
	load := make([]float64, len(index))
	for i := range load {
		load[i] = sc.BaseLoad
	}
	pos := make(map[time.Time]int, len(index))
	for i, t := range index {
		pos[t] = i
	}
	for _, p := range sc.Peaks {
		t, err := dataset.ParseTime(p.At)
		if err != nil {
			return valuestream.Inputs{}, err
		}
		i, ok := pos[t]
		if !ok {
			return valuestream.Inputs{}, fmt.Errorf("peak %s is not on the %g h grid of %d", p.At, sc.DT, sc.Year)
		}
		load[i] = p.KW
	}
	f := timeseries.NewFrame(index)
	if err := f.Set(valuestream.SystemLoadColumn, load); err != nil {
		return valuestream.Inputs{}, err
	}
	if sc.Active != nil {
		flags := make([]bool, len(index))
		for i, t := range index {
			flags[i] = t.Hour() >= sc.Active.FromHour && t.Hour() < sc.Active.ToHour
		}
		if err := f.SetFlags(valuestream.RAActiveColumn, flags); err != nil {
			return valuestream.Inputs{}, err
		}
	}
	return valuestream.Inputs{TimeSeries: f}, nil
}
