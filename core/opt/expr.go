// Package opt provides the small linear modelling layer value streams use to
// contribute decision variables, objective terms and constraints to the shared
// dispatch optimization, plus a simplex based Solver.
package opt

import (
	"fmt"
	"sync/atomic"
)

var nextVarID atomic.Int64

// Variable is a vector of decision variables. Its values are filled in by a
// Solver once the problem containing it has been solved.
type Variable struct {
	Name  string
	id    int64
	size  int
	value []float64
}

// NewVariable declares a variable of the given length.
func NewVariable(name string, size int) *Variable {
	return &Variable{Name: name, id: nextVarID.Add(1), size: size}
}

// Len returns the number of elements.
func (v *Variable) Len() int { return v.size }

// Value returns the solved values, or nil when the variable was never solved.
func (v *Variable) Value() []float64 {
	if v.value == nil {
		return nil
	}
	return append([]float64(nil), v.value...)
}

// Expr returns v as an expression with unit coefficients.
func (v *Variable) Expr() Expr {
	return Expr{n: v.size, terms: []term{{v: v, coef: ones(v.size)}}, consts: make([]float64, v.size)}
}

type term struct {
	v    *Variable
	coef []float64
}

// Expr is an elementwise affine vector expression:
// e[i] = sum_k coef_k[i]*var_k[i] + const[i].
type Expr struct {
	n      int
	terms  []term
	consts []float64
}

// Zeros returns the constant zero expression of length n.
func Zeros(n int) Expr { return Expr{n: n, consts: make([]float64, n)} }

// Const returns a constant expression.
func Const(values []float64) Expr {
	return Expr{n: len(values), consts: append([]float64(nil), values...)}
}

// Len returns the length of the expression.
func (e Expr) Len() int { return e.n }

func (e Expr) clone() Expr {
	out := Expr{n: e.n, consts: append([]float64(nil), e.consts...)}
	if out.consts == nil {
		out.consts = make([]float64, e.n)
	}
	out.terms = make([]term, len(e.terms))
	for i, t := range e.terms {
		out.terms[i] = term{v: t.v, coef: append([]float64(nil), t.coef...)}
	}
	return out
}

func mustMatch(a, b int) {
	if a != b {
		panic(fmt.Sprintf("opt: expression length mismatch %d != %d", a, b))
	}
}

// Add returns e + o.
func (e Expr) Add(o Expr) Expr {
	mustMatch(e.n, o.n)
	out := e.clone()
	for i := range out.consts {
		out.consts[i] += o.consts[i]
	}
	for _, t := range o.terms {
		out.addTerm(t.v, t.coef, 1)
	}
	return out
}

// Sub returns e - o.
func (e Expr) Sub(o Expr) Expr { return e.Add(o.Scale(-1)) }

// AddConst returns e + values.
func (e Expr) AddConst(values []float64) Expr { return e.Add(Const(values)) }

// Scale returns f*e.
func (e Expr) Scale(f float64) Expr {
	out := e.clone()
	for i := range out.consts {
		out.consts[i] *= f
	}
	for _, t := range out.terms {
		for i := range t.coef {
			t.coef[i] *= f
		}
	}
	return out
}

// MulVec returns the elementwise product of e and w.
func (e Expr) MulVec(w []float64) Expr {
	mustMatch(e.n, len(w))
	out := e.clone()
	for i := range out.consts {
		out.consts[i] *= w[i]
	}
	for _, t := range out.terms {
		for i := range t.coef {
			t.coef[i] *= w[i]
		}
	}
	return out
}

// Sum returns the scalar sum of the elements of e.
func (e Expr) Sum() Linear { return e.Dot(ones(e.n)) }

// Dot returns sum_i w[i]*e[i].
func (e Expr) Dot(w []float64) Linear {
	mustMatch(e.n, len(w))
	l := Linear{}
	for i, c := range e.consts {
		l.c += c * w[i]
	}
	for _, t := range e.terms {
		coef := make([]float64, len(t.coef))
		for i := range coef {
			coef[i] = t.coef[i] * w[i]
		}
		l.addTerm(t.v, coef)
	}
	return l
}

// Value evaluates e with the solved variable values.
func (e Expr) Value() []float64 {
	out := append([]float64(nil), e.consts...)
	if out == nil {
		out = make([]float64, e.n)
	}
	for _, t := range e.terms {
		vals := t.v.value
		for i := range out {
			if i < len(vals) {
				out[i] += t.coef[i] * vals[i]
			}
		}
	}
	return out
}

func (e *Expr) addTerm(v *Variable, coef []float64, f float64) {
	for i := range e.terms {
		if e.terms[i].v == v {
			for j := range coef {
				e.terms[i].coef[j] += f * coef[j]
			}
			return
		}
	}
	c := make([]float64, len(coef))
	for j := range coef {
		c[j] = f * coef[j]
	}
	e.terms = append(e.terms, term{v: v, coef: c})
}

// Linear is a scalar affine expression over variable elements.
type Linear struct {
	terms []term
	c     float64
}

// Constant returns the constant part.
func (l Linear) Constant() float64 { return l.c }

// Add returns l + o.
func (l Linear) Add(o Linear) Linear {
	out := l.clone()
	out.c += o.c
	for _, t := range o.terms {
		out.addTerm(t.v, t.coef)
	}
	return out
}

// Scale returns f*l.
func (l Linear) Scale(f float64) Linear {
	out := l.clone()
	out.c *= f
	for _, t := range out.terms {
		for i := range t.coef {
			t.coef[i] *= f
		}
	}
	return out
}

// Value evaluates l with the solved variable values.
func (l Linear) Value() float64 {
	total := l.c
	for _, t := range l.terms {
		for i, c := range t.coef {
			if i < len(t.v.value) {
				total += c * t.v.value[i]
			}
		}
	}
	return total
}

func (l Linear) clone() Linear {
	out := Linear{c: l.c, terms: make([]term, len(l.terms))}
	for i, t := range l.terms {
		out.terms[i] = term{v: t.v, coef: append([]float64(nil), t.coef...)}
	}
	return out
}

func (l *Linear) addTerm(v *Variable, coef []float64) {
	for i := range l.terms {
		if l.terms[i].v == v {
			for j := range coef {
				l.terms[i].coef[j] += coef[j]
			}
			return
		}
	}
	l.terms = append(l.terms, term{v: v, coef: append([]float64(nil), coef...)})
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
