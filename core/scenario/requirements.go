package scenario

import (
	"time"

	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/opt"
	"github.com/kilianp07/derval/core/valuestream"
)

// requirementConstraints enforces the power requirements that fall inside the
// window on the fleet. Net import at the POI is load + charge - discharge.
// Energy requirements need a state of energy model and are left to the
// aggregator consuming the requirement list.
func requirementConstraints(reqs []model.Requirement, index []time.Time, load []float64, f *fleet) []opt.Constraint {
	n := len(index)
	pos := make(map[int64]int, n)
	for i, t := range index {
		pos[t.UnixNano()] = i
	}
	netImport := f.netPower().AddConst(load)

	var cons []opt.Constraint
	for _, r := range reqs {
		var quantity opt.Expr
		switch r.Kind() {
		case model.DischargeDispatch:
			quantity = f.dis.Expr()
		case model.ChargeDispatch:
			quantity = f.ch.Expr()
		case model.POIImport:
			quantity = netImport
		case model.POIExport:
			quantity = netImport.Scale(-1)
		default:
			continue
		}

		sel := make([]float64, n)
		bound := make([]float64, n)
		hit := false
		s := r.Series()
		for k, t := range s.Index {
			i, ok := pos[t.UnixNano()]
			if !ok {
				continue
			}
			v := s.Values[k]
			if r.Direction() == model.Min && v <= valuestream.VeryLargeNegative {
				continue
			}
			sel[i], bound[i] = 1, v
			hit = true
		}
		if !hit {
			continue
		}
		name := r.Source() + " " + string(r.Kind()) + " " + string(r.Direction())
		diff := quantity.Sub(opt.Const(bound)).MulVec(sel)
		if r.Direction() == model.Max {
			cons = append(cons, opt.NonPos(name, diff))
		} else {
			cons = append(cons, opt.NonNeg(name, diff))
		}
	}
	return cons
}
