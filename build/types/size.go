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

// Package types implements tensor types whose dimensions are polynomials.
package types

import (
	"github.com/pkg/errors"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/poly"
)

// SizeKind is the kind of a size.
type SizeKind int

// Size kinds.
const (
	// Number is a concrete integer dimension.
	Number SizeKind = iota
	// Symbolic is a dimension depending on size variables.
	Symbolic
)

func (k SizeKind) String() string {
	if k == Number {
		return "number"
	}
	return "symbolic"
}

// SizeType is the resolved form of a size expression at a use site.
type SizeType struct {
	Poly poly.Polynomial
}

// NumberSize returns a concrete size.
func NumberSize(v int64) SizeType {
	return SizeType{Poly: poly.Constant(v)}
}

// Kind returns Number if the size is an integer constant.
func (s SizeType) Kind() SizeKind {
	if _, ok := s.Poly.Int(); ok {
		return Number
	}
	return Symbolic
}

// Value returns the integer value of a concrete size.
func (s SizeType) Value() (int64, bool) {
	return s.Poly.Int()
}

func (s SizeType) String() string {
	return s.Poly.String()
}

// IsSameSize returns true if both sizes have the same polynomial.
func IsSameSize(x, y SizeType) bool {
	return poly.IsSame(x.Poly, y.Poly)
}

// VarResolver returns the variable referenced by a size identifier.
type VarResolver func(*ast.IdentSize) (poly.Var, bool)

// FromExpr lifts a size expression into a normalized size.
func FromExpr(x ast.SizeExpr, resolve VarResolver) (SizeType, error) {
	p, err := fromExpr(x, resolve)
	if err != nil {
		return SizeType{}, err
	}
	return SizeType{Poly: p}, nil
}

func fromExpr(x ast.SizeExpr, resolve VarResolver) (poly.Polynomial, error) {
	switch xT := x.(type) {
	case *ast.NumberSize:
		return poly.Constant(xT.Value), nil
	case *ast.IdentSize:
		v, ok := resolve(xT)
		if !ok {
			return poly.Polynomial{}, errors.Errorf("undeclared size %s", xT.Name.Name)
		}
		return poly.FromVar(v), nil
	case *ast.BinarySize:
		px, err := fromExpr(xT.X, resolve)
		if err != nil {
			return px, err
		}
		py, err := fromExpr(xT.Y, resolve)
		if err != nil {
			return py, err
		}
		switch xT.Op {
		case ast.SizeAdd:
			return poly.Add(px, py), nil
		case ast.SizeSub:
			return poly.Sub(px, py), nil
		case ast.SizeMul:
			return poly.Mul(px, py), nil
		case ast.SizeDiv:
			return poly.Div(px, py), nil
		case ast.SizePow:
			return poly.Pow(px, py), nil
		}
		return poly.Polynomial{}, errors.Errorf("unknown size operator %s", xT.Op)
	}
	return poly.Polynomial{}, errors.Errorf("size expression %T not supported", x)
}
