package wholesalemarket

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/derval/core/timeseries"
)

type Response struct {
	FrancePowerExchanges []struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		UpdatedDate string `json:"updated_date"`
		Values      []struct {
			StartDate string  `json:"start_date"`
			EndDate   string  `json:"end_date"`
			Value     float64 `json:"value"`
			Price     float64 `json:"price"`
		} `json:"values"`
	} `json:"france_power_exchanges"`
}

type interval struct {
	start, end time.Time
	price      float64
}

func (r *Response) intervals() ([]interval, error) {
	var out []interval
	for _, exchange := range r.FrancePowerExchanges {
		for _, v := range exchange.Values {
			start, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			end, err := time.Parse(time.RFC3339, v.EndDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			out = append(out, interval{start: start.UTC(), end: end.UTC(), price: v.Price})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out, nil
}

// Resample maps every index timestamp to the price of the interval that
// contains it. A timestamp outside every interval is an error.
func (r *Response) Resample(name string, index []time.Time, scale float64) (timeseries.Series, error) {
	ivs, err := r.intervals()
	if err != nil {
		return timeseries.Series{}, err
	}
	vals := make([]float64, len(index))
	for i, t := range index {
		k := sort.Search(len(ivs), func(k int) bool { return ivs[k].start.After(t) }) - 1
		if k < 0 || !t.Before(ivs[k].end) {
			return timeseries.Series{}, fmt.Errorf("no price covers %s", t.Format(time.RFC3339))
		}
		vals[i] = ivs[k].price * scale
	}
	return timeseries.New(name, index, vals)
}
