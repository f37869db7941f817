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

package poly

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

type (
	// atom is a variable standing for an expression that cannot be normalized.
	atom interface {
		Var
		assign(lookup Lookup) Polynomial
		vars(map[string]Var)
		dividesByZero() bool
	}

	quotient struct {
		num, den Polynomial
	}

	power struct {
		base, exp Polynomial
	}
)

var (
	_ atom = (*quotient)(nil)
	_ atom = (*power)(nil)
)

func (q *quotient) String() string {
	return wrap(q.num) + "/" + wrap(q.den)
}

func (q *quotient) Key() string {
	return "div(" + q.num.Key() + "|" + q.den.Key() + ")"
}

func (q *quotient) assign(lookup Lookup) Polynomial {
	return Div(Assign(q.num, lookup), Assign(q.den, lookup))
}

func (q *quotient) vars(vs map[string]Var) {
	q.num.vars(vs)
	q.den.vars(vs)
}

func (q *quotient) dividesByZero() bool {
	return q.den.IsZero() || q.num.DividesByZero() || q.den.DividesByZero()
}

func (p *power) String() string {
	return wrap(p.base) + "^" + wrap(p.exp)
}

func (p *power) Key() string {
	return "pow(" + p.base.Key() + "|" + p.exp.Key() + ")"
}

func (p *power) assign(lookup Lookup) Polynomial {
	return Pow(Assign(p.base, lookup), Assign(p.exp, lookup))
}

func (p *power) vars(vs map[string]Var) {
	p.base.vars(vs)
	p.exp.vars(vs)
}

func (p *power) dividesByZero() bool {
	return p.base.DividesByZero() || p.exp.DividesByZero()
}

// DividesByZero returns true if the polynomial contains a division
// whose denominator is zero.
func (p Polynomial) DividesByZero() bool {
	for _, t := range p.terms {
		for _, f := range t.factors {
			if a, ok := f.v.(atom); ok && a.dividesByZero() {
				return true
			}
		}
	}
	return false
}

func wrap(p Polynomial) string {
	if _, ok := p.IsSingleVar(); ok {
		return p.String()
	}
	if n, ok := p.Int(); ok && n >= 0 {
		return p.String()
	}
	return "(" + p.String() + ")"
}

// Lookup returns the polynomial bound to a variable, if any.
type Lookup func(Var) (Polynomial, bool)

// Assign substitutes the variables of a polynomial bound by lookup
// and normalizes the result. Unbound variables are left untouched.
func Assign(p Polynomial, lookup Lookup) Polynomial {
	sum := make([]Polynomial, len(p.terms))
	for i, t := range p.terms {
		prod := []Polynomial{Rat(t.coef)}
		for _, f := range t.factors {
			prod = append(prod, powInt(substitute(f.v, lookup), f.exp))
		}
		sum[i] = Mul(prod...)
	}
	return Add(sum...)
}

func substitute(v Var, lookup Lookup) Polynomial {
	if bound, ok := lookup(v); ok {
		return bound
	}
	if a, ok := v.(atom); ok {
		return a.assign(lookup)
	}
	return FromVar(v)
}

func (p Polynomial) vars(vs map[string]Var) {
	for _, t := range p.terms {
		for _, f := range t.factors {
			if a, ok := f.v.(atom); ok {
				a.vars(vs)
				continue
			}
			vs[f.v.Key()] = f.v
		}
	}
}

// Vars returns the variables of the polynomial sorted by key.
// Variables used by opaque expressions are included.
func (p Polynomial) Vars() []Var {
	vs := make(map[string]Var)
	p.vars(vs)
	keys := maps.Keys(vs)
	sort.Strings(keys)
	r := make([]Var, len(keys))
	for i, key := range keys {
		r[i] = vs[key]
	}
	return r
}

// IsSingleVar returns the variable if the polynomial is exactly one
// variable which is not an opaque expression.
func (p Polynomial) IsSingleVar() (Var, bool) {
	if len(p.terms) != 1 {
		return nil, false
	}
	t := p.terms[0]
	if t.coef.Cmp(one) != 0 || len(t.factors) != 1 || t.factors[0].exp != 1 {
		return nil, false
	}
	if _, isAtom := t.factors[0].v.(atom); isAtom {
		return nil, false
	}
	return t.factors[0].v, true
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func writeFactors(b *strings.Builder, factors []factor) {
	for i, f := range factors {
		if i > 0 {
			b.WriteString("*")
		}
		b.WriteString(f.v.String())
		if exp := max(f.exp, -f.exp); exp > 1 {
			b.WriteString("^" + itoa(exp))
		}
	}
}

func (t term) string() string {
	var num, den []factor
	for _, f := range t.factors {
		if f.exp > 0 {
			num = append(num, f)
		} else {
			den = append(den, f)
		}
	}
	coef := t.coef
	var b strings.Builder
	numCoef := new(big.Int).Abs(coef.Num())
	hasNumCoef := numCoef.Cmp(big.NewInt(1)) != 0 || len(num) == 0
	if hasNumCoef {
		b.WriteString(numCoef.String())
	}
	if len(num) > 0 {
		if hasNumCoef {
			b.WriteString("*")
		}
		writeFactors(&b, num)
	}
	hasDenCoef := !coef.IsInt()
	if !hasDenCoef && len(den) == 0 {
		return b.String()
	}
	b.WriteString("/")
	parts := len(den)
	if hasDenCoef {
		parts++
	}
	if parts > 1 {
		b.WriteString("(")
	}
	if hasDenCoef {
		b.WriteString(coef.Denom().String())
		if len(den) > 0 {
			b.WriteString("*")
		}
	}
	writeFactors(&b, den)
	if parts > 1 {
		b.WriteString(")")
	}
	return b.String()
}

// String returns a human readable representation of the polynomial,
// for example 2*N + 1.
func (p Polynomial) String() string {
	if len(p.terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range p.terms {
		neg := t.coef.Sign() < 0
		switch {
		case i == 0 && neg:
			b.WriteString("-")
		case i > 0 && neg:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		b.WriteString(t.string())
	}
	return b.String()
}
