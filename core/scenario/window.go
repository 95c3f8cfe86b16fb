package scenario

import (
	"fmt"
	"time"

	"github.com/kilianp07/derval/core/timeseries"
)

// Window is one optimization sub-window of the horizon.
type Window struct {
	Label string
	Mask  timeseries.Mask
	Index []time.Time
}

// Start returns the first timestamp of the window.
func (w Window) Start() time.Time { return w.Index[0] }

// End returns the last timestamp of the window.
func (w Window) End() time.Time { return w.Index[len(w.Index)-1] }

// Windows splits index into consecutive sub-windows. Calendar windows group
// timestamps by day, month or year; a number of hours groups them into fixed
// blocks counted from the first timestamp.
func Windows(index []time.Time, window string) ([]Window, error) {
	wd, err := parseWindow(window)
	if err != nil {
		return nil, err
	}
	if len(index) == 0 {
		return nil, nil
	}
	key := func(t time.Time) string {
		switch wd.calendar {
		case WindowDay:
			return t.Format("2006-01-02")
		case WindowMonth:
			return t.Format("2006-01")
		case WindowYear:
			return t.Format("2006")
		}
		block := int64(t.Sub(index[0]) / timeseries.Duration(wd.hours))
		return fmt.Sprintf("%s+%d", index[0].Format("2006-01-02T15"), block)
	}

	var out []Window
	cur := ""
	for i, t := range index {
		k := key(t)
		if len(out) == 0 || k != cur {
			out = append(out, Window{Label: k, Mask: make(timeseries.Mask, len(index))})
			cur = k
		}
		w := &out[len(out)-1]
		w.Mask[i] = true
		w.Index = append(w.Index, t)
	}
	return out, nil
}
