package opt

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultTolerance is used when SimplexSolver.Tol is zero.
const DefaultTolerance = 1e-9

// SimplexSolver solves problems with gonum's dense simplex implementation.
// Equalities are split into two inequalities so every row of the standard form
// carries its own slack column.
type SimplexSolver struct {
	Tol float64
}

type row struct {
	coef map[int]float64
	rhs  float64
}

// lpSolve points to the LP routine. Tests override it to simulate failures.
var lpSolve = func(c []float64, g mat.Matrix, h []float64, tol float64) ([]float64, error) {
	cStd, aStd, bStd := lp.Convert(c, g, h, nil, nil)
	_, x, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	return x, err
}

// Solve implements Solver.
func (s SimplexSolver) Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}
	tol := s.Tol
	if tol == 0 {
		tol = DefaultTolerance
	}

	cols := columnIndex(p)
	rows, err := buildRows(p, cols, tol)
	if err != nil {
		return Solution{}, err
	}
	c := make([]float64, cols.n)
	for _, t := range p.Objective.terms {
		off := cols.offset[t.v]
		for i, v := range t.coef {
			c[off+i] += v
		}
	}

	used := make([]bool, cols.n)
	for _, r := range rows {
		for j := range r.coef {
			used[j] = true
		}
	}
	// Free variables absent from every constraint can only stay at zero.
	keep := make([]int, 0, cols.n)
	for j := 0; j < cols.n; j++ {
		if used[j] {
			keep = append(keep, j)
			continue
		}
		if math.Abs(c[j]) > tol {
			return Solution{}, fmt.Errorf("%w: column %d has cost and no constraint", ErrUnbounded, j)
		}
	}

	x := make([]float64, cols.n)
	if len(keep) > 0 {
		pos := make(map[int]int, len(keep))
		for k, j := range keep {
			pos[j] = k
		}
		g := mat.NewDense(len(rows), len(keep), nil)
		h := make([]float64, len(rows))
		for i, r := range rows {
			for j, v := range r.coef {
				g.Set(i, pos[j], v)
			}
			h[i] = r.rhs
		}
		ck := make([]float64, len(keep))
		for k, j := range keep {
			ck[k] = c[j]
		}
		sol, err := lpSolve(ck, g, h, tol)
		if err != nil {
			return Solution{}, mapLPError(err)
		}
		n := len(keep)
		for k, j := range keep {
			x[j] = sol[k] - sol[n+k]
		}
	}

	for v, off := range cols.offset {
		v.value = append([]float64(nil), x[off:off+v.size]...)
	}
	return Solution{Objective: p.Objective.Value()}, nil
}

type columns struct {
	n      int
	offset map[*Variable]int
}

func columnIndex(p Problem) columns {
	cols := columns{offset: make(map[*Variable]int)}
	add := func(ts []term) {
		for _, t := range ts {
			if _, ok := cols.offset[t.v]; ok {
				continue
			}
			cols.offset[t.v] = cols.n
			cols.n += t.v.size
		}
	}
	add(p.Objective.terms)
	for _, con := range p.Constraints {
		add(con.Expr.terms)
	}
	return cols
}

// buildRows turns every constraint element into G*x <= h rows. Rows without
// variables are checked directly and dropped.
func buildRows(p Problem, cols columns, tol float64) ([]row, error) {
	var rows []row
	for _, con := range p.Constraints {
		for i := 0; i < con.Expr.n; i++ {
			r := row{coef: make(map[int]float64), rhs: -con.Expr.consts[i]}
			for _, t := range con.Expr.terms {
				if t.coef[i] != 0 {
					r.coef[cols.offset[t.v]+i] += t.coef[i]
				}
			}
			senses := []float64{1}
			if con.Sense == EqZero {
				senses = []float64{1, -1}
			}
			for _, sgn := range senses {
				if len(r.coef) == 0 {
					if sgn*r.rhs < -tol {
						return nil, fmt.Errorf("%w: constant constraint %s[%d] violated", ErrInfeasible, con.Name, i)
					}
					continue
				}
				sr := row{coef: make(map[int]float64, len(r.coef)), rhs: sgn * r.rhs}
				for j, v := range r.coef {
					sr.coef[j] = sgn * v
				}
				rows = append(rows, sr)
			}
		}
	}
	return rows, nil
}

func mapLPError(err error) error {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return fmt.Errorf("%w: %v", ErrInfeasible, err)
	case errors.Is(err, lp.ErrUnbounded):
		return fmt.Errorf("%w: %v", ErrUnbounded, err)
	default:
		return fmt.Errorf("%w: %v", ErrSolver, err)
	}
}
