package opt

import (
	"context"
	"errors"
)

// Sense is the relation a constraint expression must satisfy.
type Sense int

const (
	// LessEqZero requires every element to be <= 0.
	LessEqZero Sense = iota
	// EqZero requires every element to be == 0.
	EqZero
)

// Constraint is a vector constraint on an expression.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
}

// NonPos constrains e <= 0.
func NonPos(name string, e Expr) Constraint { return Constraint{Name: name, Expr: e, Sense: LessEqZero} }

// NonNeg constrains e >= 0.
func NonNeg(name string, e Expr) Constraint { return NonPos(name, e.Scale(-1)) }

// Zero constrains e == 0.
func Zero(name string, e Expr) Constraint { return Constraint{Name: name, Expr: e, Sense: EqZero} }

// Problem is a minimization of Objective subject to Constraints.
type Problem struct {
	Objective   Linear
	Constraints []Constraint
}

// Solution holds the optimal objective value. Variable values are written back
// onto the variables of the problem.
type Solution struct {
	Objective float64
}

// Solver solves linear problems.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

var (
	// ErrInfeasible is returned when no point satisfies the constraints.
	ErrInfeasible = errors.New("problem infeasible")
	// ErrUnbounded is returned when the objective can decrease without limit.
	ErrUnbounded = errors.New("problem unbounded")
	// ErrSolver wraps any other solver failure.
	ErrSolver = errors.New("solver failure")
)
