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
	"strings"

	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/poly"
)

// Type is the shape of a tensor: an ordered list of sizes.
type Type struct {
	Dims []SizeType
}

// New returns a type given its dimensions.
func New(dims ...SizeType) Type {
	return Type{Dims: dims}
}

// Numbers returns a concrete type.
func Numbers(dims ...int64) Type {
	t := Type{Dims: make([]SizeType, len(dims))}
	for i, dim := range dims {
		t.Dims[i] = NumberSize(dim)
	}
	return t
}

// FromNode converts a type node into a type.
func FromNode(node *ast.TypeNode, resolve VarResolver) (Type, error) {
	t := Type{Dims: make([]SizeType, len(node.Sizes))}
	for i, size := range node.Sizes {
		var err error
		if t.Dims[i], err = FromExpr(size, resolve); err != nil {
			return Type{}, err
		}
	}
	return t, nil
}

// Rank returns the number of dimensions.
func (t Type) Rank() int {
	return len(t.Dims)
}

// IsConcrete returns true if all dimensions are integer constants.
func (t Type) IsConcrete() bool {
	for _, dim := range t.Dims {
		if dim.Kind() != Number {
			return false
		}
	}
	return true
}

// Concat returns the type with the dimensions of prefix followed by the dimensions of t.
func (t Type) Concat(prefix []SizeType) Type {
	if len(prefix) == 0 {
		return t
	}
	dims := append(append([]SizeType{}, prefix...), t.Dims...)
	return Type{Dims: dims}
}

// Assign substitutes the variables of all dimensions.
func (t Type) Assign(lookup poly.Lookup) Type {
	r := Type{Dims: make([]SizeType, len(t.Dims))}
	for i, dim := range t.Dims {
		r.Dims[i] = SizeType{Poly: poly.Assign(dim.Poly, lookup)}
	}
	return r
}

// DividesByZero returns the first dimension dividing by zero.
func (t Type) DividesByZero() (int, bool) {
	for i, dim := range t.Dims {
		if dim.Poly.DividesByZero() {
			return i, true
		}
	}
	return -1, false
}

// Vars returns the variables used by the dimensions of the type.
func (t Type) Vars() []poly.Var {
	seen := make(map[string]bool)
	var vars []poly.Var
	for _, dim := range t.Dims {
		for _, v := range dim.Poly.Vars() {
			if seen[v.Key()] {
				continue
			}
			seen[v.Key()] = true
			vars = append(vars, v)
		}
	}
	return vars
}

func (t Type) String() string {
	dims := make([]string, len(t.Dims))
	for i, dim := range t.Dims {
		dims[i] = dim.String()
	}
	return "Tensor[" + strings.Join(dims, ", ") + "]"
}

// IsSame returns true if two types have the same rank and the same polynomial dimensions.
func IsSame(x, y Type) bool {
	if x.Rank() != y.Rank() {
		return false
	}
	for i, dim := range x.Dims {
		if !IsSameSize(dim, y.Dims[i]) {
			return false
		}
	}
	return true
}
