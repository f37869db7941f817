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

package types

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/gx-org/nn/base/ordered"
	"github.com/gx-org/nn/build/poly"
)

type (
	// Binding binds a size variable of a callee to a polynomial of the caller.
	Binding struct {
		Var   poly.Var
		Value poly.Polynomial
	}

	// Constraint is a formal dimension which is not a single variable.
	// It can only be verified once all the variables have been bound.
	Constraint struct {
		Dim    int
		Actual SizeType
		Formal SizeType
	}

	// Unification is the result of assigning an actual type to a formal type.
	Unification struct {
		Bindings []Binding
		Deferred []Constraint
		// Passthrough are the leading dimensions of the actual type
		// not matched by the formal type.
		Passthrough []SizeType
	}
)

// Assignability is the outcome of assigning a size to a formal size.
type Assignability int

const (
	// NotAssignable means that the sizes cannot be the same.
	NotAssignable Assignability = iota
	// Assignable means that the sizes are the same.
	Assignable
	// Bind means that the formal size is a free variable to bind to the actual size.
	Bind
	// Defer means that the formal size depends on free variables and
	// needs to be checked once all variables have been bound.
	Defer
)

// IsFree returns true for the variables that can be bound by unification,
// that is the size variables of the callee.
type IsFree func(poly.Var) bool

// IsAssignableSize unifies an actual size with a formal size.
// Only variables for which free returns true can be bound.
func IsAssignableSize(actual, formal SizeType, free IsFree) (Assignability, Binding) {
	if IsSameSize(actual, formal) {
		return Assignable, Binding{}
	}
	if v, ok := formal.Poly.IsSingleVar(); ok && free(v) {
		return Bind, Binding{Var: v, Value: actual.Poly}
	}
	for _, v := range formal.Poly.Vars() {
		if free(v) {
			return Defer, Binding{}
		}
	}
	return NotAssignable, Binding{}
}

// MismatchError is returned when a dimension cannot be assigned.
type MismatchError struct {
	Dim            int
	Actual, Formal SizeType
}

func (err *MismatchError) Error() string {
	return "dimension " + strconv.Itoa(err.Dim) + ": " + err.Actual.String() + " is not assignable to " + err.Formal.String()
}

// IsAssignable unifies an actual type with a formal type.
// Dimensions are aligned from the right: leading dimensions of actual
// in excess pass through unconstrained.
func IsAssignable(actual, formal Type, free IsFree) (*Unification, error) {
	if actual.Rank() < formal.Rank() {
		return nil, errors.Errorf("rank mismatch: %s has fewer dimensions than %s", actual, formal)
	}
	offset := actual.Rank() - formal.Rank()
	u := &Unification{Passthrough: actual.Dims[:offset]}
	for i, formalDim := range formal.Dims {
		actualDim := actual.Dims[offset+i]
		switch res, binding := IsAssignableSize(actualDim, formalDim, free); res {
		case NotAssignable:
			return nil, errors.WithStack(&MismatchError{Dim: offset + i, Actual: actualDim, Formal: formalDim})
		case Bind:
			u.Bindings = append(u.Bindings, binding)
		case Defer:
			u.Deferred = append(u.Deferred, Constraint{Dim: offset + i, Actual: actualDim, Formal: formalDim})
		}
	}
	return u, nil
}

// IsAssignableExact unifies two types of the same rank.
func IsAssignableExact(actual, formal Type, free IsFree) (*Unification, error) {
	if actual.Rank() != formal.Rank() {
		return nil, errors.Errorf("rank mismatch: %s and %s have different ranks", actual, formal)
	}
	return IsAssignable(actual, formal, free)
}

// Bindings maps size variables to polynomials in binding order.
type Bindings struct {
	m *ordered.Map[poly.Var, poly.Polynomial]
}

// NewBindings returns an empty set of bindings.
func NewBindings() *Bindings {
	return &Bindings{m: ordered.NewMap[poly.Var, poly.Polynomial]()}
}

// Bind a variable to a polynomial. Binding a variable twice
// to polynomials which are not the same is an error.
func (b *Bindings) Bind(v poly.Var, p poly.Polynomial) error {
	prev, loaded := b.m.LoadOrStore(v, p)
	if loaded && !poly.IsSame(prev, p) {
		return errors.Errorf("size %s bound to both %s and %s", v, prev, p)
	}
	return nil
}

// Lookup returns the polynomial bound to a variable.
func (b *Bindings) Lookup(v poly.Var) (poly.Polynomial, bool) {
	if b == nil {
		return poly.Polynomial{}, false
	}
	return b.m.Load(v)
}

// Len returns the number of bound variables.
func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return b.m.Size()
}

// Vars returns the bound variables in binding order.
func (b *Bindings) Vars() []poly.Var {
	if b == nil {
		return nil
	}
	var vars []poly.Var
	for v := range b.m.Keys() {
		vars = append(vars, v)
	}
	return vars
}

// Apply adds the bindings of a unification.
func (b *Bindings) Apply(u *Unification) error {
	for _, binding := range u.Bindings {
		if err := b.Bind(binding.Var, binding.Value); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies deferred constraints against the bindings.
func (b *Bindings) Check(constraints []Constraint) error {
	for _, c := range constraints {
		formal := SizeType{Poly: poly.Assign(c.Formal.Poly, b.Lookup)}
		if IsSameSize(c.Actual, formal) {
			continue
		}
		return errors.WithStack(&MismatchError{Dim: c.Dim, Actual: c.Actual, Formal: formal})
	}
	return nil
}
