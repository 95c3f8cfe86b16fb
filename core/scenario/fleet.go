package scenario

import (
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/opt"
	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/core/valuestream"
)

// Fleet variable names saved in Result.Fleet.
const (
	FleetCharge    = "ess_ch"
	FleetDischarge = "ess_dis"
)

// fleet aggregates every rated resource into one charge and one discharge
// power variable per window.
type fleet struct {
	chargeMax    float64
	dischargeMax float64

	ch, dis *opt.Variable
}

func newFleet(ders []model.DER) *fleet {
	f := &fleet{}
	for _, d := range ders {
		if r, ok := d.(model.Rated); ok {
			f.chargeMax += r.ChargeRating()
			f.dischargeMax += r.DischargeRating()
		}
	}
	return f
}

func (f *fleet) declare(n int) {
	f.ch = opt.NewVariable(FleetCharge, n)
	f.dis = opt.NewVariable(FleetDischarge, n)
}

// netPower is charge minus discharge.
func (f *fleet) netPower() opt.Expr { return f.ch.Expr().Sub(f.dis.Expr()) }

// constraints bounds the fleet powers and links them to what the streams
// reserve: held back charging cannot exceed charging, and reserved headroom
// must fit inside the ratings.
func (f *fleet) constraints(n int, mask timeseries.Mask, streams []valuestream.ValueStream) []opt.Constraint {
	ch, dis := f.ch.Expr(), f.dis.Expr()
	chMax := constant(n, f.chargeMax)
	disMax := constant(n, f.dischargeMax)

	chUp, chDown := opt.Zeros(n), opt.Zeros(n)
	disUp, disDown := opt.Zeros(n), opt.Zeros(n)
	for _, s := range streams {
		r, ok := s.(valuestream.Reserver)
		if !ok {
			continue
		}
		chUp = chUp.Add(r.PReservationChargeUp(mask))
		chDown = chDown.Add(r.PReservationChargeDown(mask))
		disUp = disUp.Add(r.PReservationDischargeUp(mask))
		disDown = disDown.Add(r.PReservationDischargeDown(mask))
	}

	return []opt.Constraint{
		opt.NonNeg(FleetCharge, ch),
		opt.NonNeg(FleetDischarge, dis),
		opt.NonPos("fleet charge rating", ch.Sub(opt.Const(chMax))),
		opt.NonPos("fleet discharge rating", dis.Sub(opt.Const(disMax))),
		opt.NonPos("charge up reservation", chUp.Sub(ch)),
		opt.NonPos("discharge up reservation", dis.Add(disUp).Sub(opt.Const(disMax))),
		opt.NonPos("charge down reservation", ch.Add(chDown).Sub(opt.Const(chMax))),
		opt.NonPos("discharge down reservation", disDown.Sub(dis)),
	}
}

func (f *fleet) values() map[string][]float64 {
	return map[string][]float64{FleetCharge: f.ch.Value(), FleetDischarge: f.dis.Value()}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
