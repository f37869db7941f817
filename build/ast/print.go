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

package ast

import (
	"fmt"
	"strings"
)

// SizeString returns the source representation of a size expression.
// Binary operations are parenthesised when required by precedence.
func SizeString(x SizeExpr) string {
	return sizeString(x, 0)
}

func sizeString(x SizeExpr, parent int) string {
	switch xT := x.(type) {
	case *NumberSize:
		return fmt.Sprint(xT.Value)
	case *IdentSize:
		return xT.Name.Name
	case *BinarySize:
		prec := xT.Op.Precedence()
		left, right := prec, prec+1
		if xT.Op == SizePow {
			left, right = prec+1, prec
		}
		s := fmt.Sprintf("%s %s %s", sizeString(xT.X, left), xT.Op, sizeString(xT.Y, right))
		if prec < parent {
			s = "(" + s + ")"
		}
		return s
	default:
		return fmt.Sprintf("<%T>", x)
	}
}

// TypeString returns the source representation of a type.
func TypeString(tp *TypeNode) string {
	if tp == nil {
		return "<nil>"
	}
	name := "Tensor"
	if tp.Name != nil {
		name = tp.Name.Name
	}
	if len(tp.Sizes) == 0 {
		return name
	}
	sizes := make([]string, len(tp.Sizes))
	for i, size := range tp.Sizes {
		sizes[i] = SizeString(size)
	}
	return name + "[" + strings.Join(sizes, ", ") + "]"
}
