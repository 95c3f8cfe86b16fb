package valuestream

import (
	"fmt"
	"time"

	"github.com/kilianp07/derval/core/opt"
	"github.com/kilianp07/derval/core/timeseries"
)

// Decision variable names of upward market services.
const (
	ChLess  = "ch_less"
	DisMore = "dis_more"
)

// MarketConfig holds the settings shared by upward reserve markets.
type MarketConfig struct {
	Growth   float64 `json:"growth"`   // price growth in %/yr
	Duration float64 `json:"duration"` // hours the reserve must be sustained
	DT       float64 `json:"dt"`
}

// MarketServiceUp is a reserve market paid for holding back charging
// (ch_less) or for spare discharge headroom (dis_more).
type MarketServiceUp struct {
	Base
	short string
	cfg   MarketConfig
	price timeseries.Series
}

func newMarketServiceUp(short, full string, conf map[string]any, in Inputs) (*MarketServiceUp, error) {
	if err := requireKeys(full, conf, "growth", "duration", "dt"); err != nil {
		return nil, err
	}
	var cfg MarketConfig
	if err := decode(full, conf, &cfg); err != nil {
		return nil, err
	}
	if cfg.DT <= 0 {
		return nil, fmt.Errorf("%w: %s needs a positive dt", ErrModelParameter, full)
	}
	price, err := in.series(full, short+" Price ($/kW)")
	if err != nil {
		return nil, err
	}
	return &MarketServiceUp{Base: NewBase(full, cfg.DT, in.Log), short: short, cfg: cfg, price: price}, nil
}

// ShortName is the abbreviation used in column names.
func (m *MarketServiceUp) ShortName() string { return m.short }

// GrowDropData grows the price signal with the service growth rate.
func (m *MarketServiceUp) GrowDropData(years []int, step time.Duration, _ float64) error {
	p, err := timeseries.GrowDrop(m.price, years, step, m.cfg.Growth)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTimeseriesData, err)
	}
	m.price = p
	return nil
}

// InitializeVariables declares ch_less and dis_more for the window.
func (m *MarketServiceUp) InitializeVariables(size int) {
	m.DeclareVariables(size, ChLess, DisMore)
}

func (m *MarketServiceUp) capacity(n int) opt.Expr {
	return m.Var(ChLess, n).Add(m.Var(DisMore, n))
}

// ObjectiveFunction pays the price for every kW held in reserve.
func (m *MarketServiceUp) ObjectiveFunction(mask timeseries.Mask, _ WindowInputs, annuity float64) map[string]opt.Linear {
	n := mask.Count()
	price := m.price.Select(mask).Values
	pay := m.capacity(n).Dot(price).Scale(-annuity)
	return map[string]opt.Linear{m.Name(): pay}
}

// Constraints keeps both reserve variables non-negative.
func (m *MarketServiceUp) Constraints(mask timeseries.Mask, _ WindowInputs, _ float64) []opt.Constraint {
	n := mask.Count()
	return []opt.Constraint{
		opt.NonNeg(m.short+" ch_less", m.Var(ChLess, n)),
		opt.NonNeg(m.short+" dis_more", m.Var(DisMore, n)),
	}
}

func (m *MarketServiceUp) PReservationChargeUp(mask timeseries.Mask) opt.Expr {
	return m.Var(ChLess, mask.Count())
}

func (m *MarketServiceUp) PReservationDischargeUp(mask timeseries.Mask) opt.Expr {
	return m.Var(DisMore, mask.Count())
}

// WorstCaseUEnergyProvided is the energy drawn if the reserve is called for
// its full duration. It is negative by convention.
func (m *MarketServiceUp) WorstCaseUEnergyProvided(mask timeseries.Mask) opt.Expr {
	return m.capacity(mask.Count()).Scale(-m.cfg.Duration)
}

func (m *MarketServiceUp) upChargingColumn() string    { return m.short + " Up (Charging) (kW)" }
func (m *MarketServiceUp) upDischargingColumn() string { return m.short + " Up (Discharging) (kW)" }
func (m *MarketServiceUp) priceColumn() string         { return m.short + " Price ($/kW)" }

// TimeseriesReport lists the price and the solved reserve split.
func (m *MarketServiceUp) TimeseriesReport(res *Results) *timeseries.Frame {
	f := timeseries.NewFrame(m.price.Index)
	_ = f.Set(m.priceColumn(), m.price.Values)
	if res == nil {
		return f
	}
	if s, ok := res.Column(ChLess); ok {
		f.Join(s.Rename(m.upChargingColumn()))
	}
	if s, ok := res.Column(DisMore); ok {
		f.Join(s.Rename(m.upDischargingColumn()))
	}
	return f
}

// ProformaReport sums the reserve payments of each year.
func (m *MarketServiceUp) ProformaReport(years []int, res *Results) *timeseries.Frame {
	f := timeseries.NewYearlyFrame(years)
	vals := make([]float64, len(years))
	if res != nil {
		ch, okCh := res.Column(ChLess)
		dis, okDis := res.Column(DisMore)
		if okCh && okDis {
			pos := make(map[int]int, len(years))
			for i, y := range years {
				pos[y] = i
			}
			for i, t := range ch.Index {
				k, ok := pos[t.Year()]
				if !ok {
					continue
				}
				p, ok := m.price.Lookup(t)
				if !ok {
					continue
				}
				vals[k] += p * (ch.Values[i] + dis.Values[i])
			}
		}
	}
	_ = f.Set(m.Name(), vals)
	return f
}

// UpdatePriceSignals replaces the price when the time series has the price
// column of this service.
func (m *MarketServiceUp) UpdatePriceSignals(_, ts *timeseries.Frame) {
	if ts == nil {
		return
	}
	if s, ok := ts.Series(m.priceColumn()); ok {
		m.price = s
	}
}
