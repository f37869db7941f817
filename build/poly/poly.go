// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package poly implements symbolic polynomials over size variables.
//
// A polynomial is a normalized sum of monomials. Each monomial is a
// rational coefficient multiplied by variables raised to non-zero
// integer exponents. Two polynomials denoting the same expression have
// the same normalized form, so structural comparison decides equality.
//
// Divisions by a sum and powers with a symbolic exponent cannot be
// normalized. They are kept as opaque atoms: variables whose identity
// is the normalized form of their operands.
package poly

import (
	"math/big"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

type (
	// Var is a variable of a polynomial.
	Var interface {
		// String returns the name of the variable for display.
		String() string
		// Key uniquely identifies the variable.
		Key() string
	}

	factor struct {
		v   Var
		exp int
	}

	term struct {
		coef    *big.Rat
		factors []factor
	}

	// Polynomial is a normalized polynomial.
	// The zero value is the zero polynomial.
	Polynomial struct {
		terms []term
	}
)

var one = big.NewRat(1, 1)

// Symbol is a variable identified by its name.
type Symbol string

// String returns the name of the symbol.
func (s Symbol) String() string { return string(s) }

// Key returns the name of the symbol.
func (s Symbol) Key() string { return string(s) }

// Constant returns a constant polynomial.
func Constant(v int64) Polynomial {
	return Rat(big.NewRat(v, 1))
}

// Rat returns a constant polynomial given a rational number.
func Rat(r *big.Rat) Polynomial {
	return normalize([]term{{coef: new(big.Rat).Set(r)}})
}

// FromVar returns the polynomial consisting of a single variable.
func FromVar(v Var) Polynomial {
	return normalize([]term{{
		coef:    big.NewRat(1, 1),
		factors: []factor{{v: v, exp: 1}},
	}})
}

func (f factor) key() string {
	if f.exp == 1 {
		return f.v.Key()
	}
	return f.v.Key() + "^" + itoa(f.exp)
}

func (t term) key() string {
	keys := make([]string, len(t.factors))
	for i, f := range t.factors {
		keys[i] = f.key()
	}
	return strings.Join(keys, "*")
}

func (t term) degree() int {
	d := 0
	for _, f := range t.factors {
		d += max(f.exp, -f.exp)
	}
	return d
}

// normalize collects like monomials, drops zero coefficients and
// zero exponents, and sorts the result.
func normalize(terms []term) Polynomial {
	byKey := make(map[string]term)
	for _, t := range terms {
		t = normalizeFactors(t)
		if t.coef.Sign() == 0 {
			continue
		}
		key := t.key()
		prev, ok := byKey[key]
		if !ok {
			byKey[key] = term{coef: new(big.Rat).Set(t.coef), factors: t.factors}
			continue
		}
		prev.coef.Add(prev.coef, t.coef)
	}
	keys := maps.Keys(byKey)
	result := make([]term, 0, len(keys))
	for _, key := range keys {
		if t := byKey[key]; t.coef.Sign() != 0 {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		di, dj := result[i].degree(), result[j].degree()
		if di != dj {
			return di > dj
		}
		return result[i].key() < result[j].key()
	})
	return Polynomial{terms: result}
}

func normalizeFactors(t term) term {
	exps := make(map[string]factor)
	for _, f := range t.factors {
		prev, ok := exps[f.v.Key()]
		if !ok {
			exps[f.v.Key()] = f
			continue
		}
		prev.exp += f.exp
		exps[f.v.Key()] = prev
	}
	keys := maps.Keys(exps)
	sort.Strings(keys)
	factors := make([]factor, 0, len(keys))
	for _, key := range keys {
		if f := exps[key]; f.exp != 0 {
			factors = append(factors, f)
		}
	}
	return term{coef: t.coef, factors: factors}
}

// Add returns the sum of polynomials.
func Add(ps ...Polynomial) Polynomial {
	var terms []term
	for _, p := range ps {
		terms = append(terms, p.terms...)
	}
	return normalize(terms)
}

// Neg returns -p.
func Neg(p Polynomial) Polynomial {
	terms := make([]term, len(p.terms))
	for i, t := range p.terms {
		terms[i] = term{coef: new(big.Rat).Neg(t.coef), factors: t.factors}
	}
	return normalize(terms)
}

// Sub returns x - y.
func Sub(x, y Polynomial) Polynomial {
	return Add(x, Neg(y))
}

func mulTerms(x, y term) term {
	factors := append(append([]factor{}, x.factors...), y.factors...)
	return term{coef: new(big.Rat).Mul(x.coef, y.coef), factors: factors}
}

// Mul returns the product of polynomials.
func Mul(ps ...Polynomial) Polynomial {
	r := Constant(1)
	for _, p := range ps {
		var terms []term
		for _, x := range r.terms {
			for _, y := range p.terms {
				terms = append(terms, mulTerms(x, y))
			}
		}
		r = normalize(terms)
	}
	return r
}

func (t term) inverse() term {
	factors := make([]factor, len(t.factors))
	for i, f := range t.factors {
		factors[i] = factor{v: f.v, exp: -f.exp}
	}
	return term{coef: new(big.Rat).Inv(t.coef), factors: factors}
}

// Div returns x / y.
// Division by a monomial multiplies by its inverse. Any other division
// returns an opaque quotient, unless x and y are the same.
func Div(x, y Polynomial) Polynomial {
	if x.IsZero() && !y.IsZero() {
		return x
	}
	if len(y.terms) == 1 {
		return Mul(x, Polynomial{terms: []term{y.terms[0].inverse()}})
	}
	if !y.IsZero() && IsSame(x, y) {
		return Constant(1)
	}
	return FromVar(&quotient{num: x, den: y})
}

func powInt(p Polynomial, n int) Polynomial {
	if n < 0 {
		return Div(Constant(1), powInt(p, -n))
	}
	r := Constant(1)
	for range n {
		r = Mul(r, p)
	}
	return r
}

// Pow returns x ^ y.
// The exponent needs to be an integer constant for the result to be
// normalized. Otherwise, an opaque power is returned.
func Pow(x, y Polynomial) Polynomial {
	if n, ok := y.Int(); ok && n >= -maxExp && n <= maxExp {
		return powInt(x, int(n))
	}
	return FromVar(&power{base: x, exp: y})
}

// maxExp bounds the exponents expanded by Pow.
const maxExp = 64

// IsZero returns true if the polynomial is zero.
func (p Polynomial) IsZero() bool {
	return len(p.terms) == 0
}

// Constant returns the value of the polynomial if it has no variable.
func (p Polynomial) Constant() (*big.Rat, bool) {
	switch len(p.terms) {
	case 0:
		return new(big.Rat), true
	case 1:
		if len(p.terms[0].factors) > 0 {
			return nil, false
		}
		return new(big.Rat).Set(p.terms[0].coef), true
	}
	return nil, false
}

// Int returns the value of the polynomial if it is an integer constant.
func (p Polynomial) Int() (int64, bool) {
	c, ok := p.Constant()
	if !ok || !c.IsInt() || !c.Num().IsInt64() {
		return 0, false
	}
	return c.Num().Int64(), true
}

// IsSame returns true if two polynomials have the same normalized form.
func IsSame(x, y Polynomial) bool {
	if len(x.terms) != len(y.terms) {
		return false
	}
	for i, tx := range x.terms {
		ty := y.terms[i]
		if tx.coef.Cmp(ty.coef) != 0 || tx.key() != ty.key() {
			return false
		}
	}
	return true
}

// Key returns a string uniquely identifying the normalized form of the polynomial.
func (p Polynomial) Key() string {
	keys := make([]string, len(p.terms))
	for i, t := range p.terms {
		keys[i] = t.coef.RatString() + "·" + t.key()
	}
	return strings.Join(keys, " + ")
}
