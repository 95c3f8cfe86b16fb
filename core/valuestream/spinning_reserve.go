package valuestream

import (
	"fmt"
	"time"

	"github.com/kilianp07/derval/core/opt"
	"github.com/kilianp07/derval/core/timeseries"
)

// Participation band columns of spinning reserve.
const (
	SRMaxColumn = "SR Max (kW)"
	SRMinColumn = "SR Min (kW)"
)

// SpinningReserve is an upward reserve market with an optional per-interval
// participation band on ch_less+dis_more.
type SpinningReserve struct {
	*MarketServiceUp
	tsConstraints bool
	max, min      timeseries.Series
}

// NewSpinningReserve builds the stream. With ts_constraints set, the "SR Max
// (kW)" and "SR Min (kW)" columns are required.
func NewSpinningReserve(conf map[string]any, in Inputs) (*SpinningReserve, error) {
	base, err := newMarketServiceUp("SR", "Spinning Reserve", conf, in)
	if err != nil {
		return nil, err
	}
	var c struct {
		TSConstraints bool `json:"ts_constraints"`
	}
	if err := decode(base.Name(), conf, &c); err != nil {
		return nil, err
	}
	sr := &SpinningReserve{MarketServiceUp: base, tsConstraints: c.TSConstraints}
	if c.TSConstraints {
		if sr.max, err = in.series(base.Name(), SRMaxColumn); err != nil {
			return nil, err
		}
		if sr.min, err = in.series(base.Name(), SRMinColumn); err != nil {
			return nil, err
		}
	}
	return sr, nil
}

// GrowDropData also grows the participation band.
func (s *SpinningReserve) GrowDropData(years []int, step time.Duration, loadGrowth float64) error {
	if err := s.MarketServiceUp.GrowDropData(years, step, loadGrowth); err != nil {
		return err
	}
	if !s.tsConstraints {
		return nil
	}
	hi, err := timeseries.GrowDrop(s.max, years, step, s.cfg.Growth)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTimeseriesData, err)
	}
	lo, err := timeseries.GrowDrop(s.min, years, step, s.cfg.Growth)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTimeseriesData, err)
	}
	s.max, s.min = hi, lo
	return nil
}

// Constraints adds min <= ch_less+dis_more <= max when the band is enabled.
func (s *SpinningReserve) Constraints(mask timeseries.Mask, in WindowInputs, combinedRating float64) []opt.Constraint {
	cons := s.MarketServiceUp.Constraints(mask, in, combinedRating)
	if !s.tsConstraints {
		return cons
	}
	capacity := s.capacity(mask.Count())
	hi := s.max.Select(mask).Values
	lo := s.min.Select(mask).Values
	return append(cons,
		opt.NonPos("SR max", capacity.Sub(opt.Const(hi))),
		opt.NonPos("SR min", capacity.Scale(-1).AddConst(lo)),
	)
}

// TimeseriesReport adds the band columns.
func (s *SpinningReserve) TimeseriesReport(res *Results) *timeseries.Frame {
	f := s.MarketServiceUp.TimeseriesReport(res)
	if s.tsConstraints {
		f.Join(s.max.Rename(SRMaxColumn))
		f.Join(s.min.Rename(SRMinColumn))
	}
	return f
}

// MinRegulationDown returns the band minimum, or zeros without a band.
func (s *SpinningReserve) MinRegulationDown(mask timeseries.Mask) []float64 {
	if s.tsConstraints {
		return s.min.Select(mask).Values
	}
	return s.MarketServiceUp.MinRegulationDown(mask)
}

// MaxParticipationIsDefined reports whether a band maximum is configured.
func (s *SpinningReserve) MaxParticipationIsDefined() bool { return s.tsConstraints }
