package scenario

import (
	"github.com/kilianp07/derval/core/timeseries"
)

// Fleet report columns.
const (
	FleetChargeColumn    = "Aggregated Storage Charge (kW)"
	FleetDischargeColumn = "Aggregated Storage Discharge (kW)"
)

// Reports gathers the frames every stream reports after a run.
type Reports struct {
	Timeseries *timeseries.Frame
	Monthly    *timeseries.Frame
	Proforma   *timeseries.Frame
	DrillDown  map[string]*timeseries.Frame
}

// Reports merges the reports of every stream over the run horizon.
func (s *Scenario) Reports(res *Result) Reports {
	ts := timeseries.NewFrame(res.Index)
	if c, ok := res.Fleet.Column(FleetCharge); ok {
		ts.Join(c.Rename(FleetChargeColumn))
	}
	if c, ok := res.Fleet.Column(FleetDischarge); ok {
		ts.Join(c.Rename(FleetDischargeColumn))
	}
	monthly := timeseries.NewMonthlyFrame(timeseries.MonthIndex(res.Years))
	proforma := timeseries.NewYearlyFrame(res.Years)
	drill := make(map[string]*timeseries.Frame)

	for _, vs := range s.streams {
		sr := res.Streams[vs.Name()]
		ts.Merge(vs.TimeseriesReport(sr))
		monthly.Merge(vs.MonthlyReport())
		proforma.Merge(vs.ProformaReport(res.Years, sr))
		for name, f := range vs.DrillDownReports(sr) {
			if _, ok := drill[name]; ok {
				name = vs.Name() + " " + name
			}
			drill[name] = f
		}
	}
	return Reports{Timeseries: ts, Monthly: monthly, Proforma: proforma, DrillDown: drill}
}
