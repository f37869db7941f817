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

import "fmt"

// Inspect traverses a syntax tree in depth-first order.
// It calls f(n) for each node n; if f returns false,
// the children of n are not visited.
//
// Every node type is listed explicitly: a missing case panics.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch nT := n.(type) {
	case *File:
		for _, imp := range nT.Imports {
			Inspect(imp, f)
		}
		for _, decl := range nT.Decls {
			Inspect(decl, f)
		}
	case *Import:
		for _, name := range nT.Names {
			Inspect(name, f)
		}
		if nT.Target != nil {
			Inspect(nT.Target, f)
		}
	case *Declaration:
		Inspect(nT.Name, f)
		for _, size := range nT.SizeParams {
			Inspect(size, f)
		}
		for _, arg := range nT.Args {
			Inspect(arg, f)
		}
		if nT.Return != nil {
			Inspect(nT.Return, f)
		}
		for _, expr := range nT.Pipeline {
			Inspect(expr, f)
		}
	case *Argument:
		Inspect(nT.Name, f)
		Inspect(nT.Type, f)
	case *TypeNode:
		Inspect(nT.Name, f)
		for _, size := range nT.Sizes {
			Inspect(size, f)
		}
	case *NumberSize:
	case *IdentSize:
		Inspect(nT.Name, f)
	case *BinarySize:
		Inspect(nT.X, f)
		Inspect(nT.Y, f)
	case *CallExpr:
		Inspect(nT.Callee, f)
		for _, size := range nT.Sizes {
			Inspect(size, f)
		}
		for _, arg := range nT.Args {
			Inspect(arg, f)
		}
	case *TupleExpr:
		for _, elt := range nT.Elts {
			Inspect(elt, f)
		}
	case *AssignExpr:
		Inspect(nT.Name, f)
		Inspect(nT.Value, f)
	case *IdentExpr:
		Inspect(nT.Name, f)
	case *StringLit:
	case *Ident:
	default:
		panic(fmt.Sprintf("ast.Inspect: unexpected node type %T", nT))
	}
}

// Collect returns all the nodes of type T in a tree, in depth-first order.
func Collect[T Node](n Node) []T {
	var r []T
	Inspect(n, func(n Node) bool {
		if nT, ok := n.(T); ok {
			r = append(r, nT)
		}
		return true
	})
	return r
}

// Calls returns the call expressions of a node in depth-first order.
func Calls(n Node) []*CallExpr {
	return Collect[*CallExpr](n)
}

// SizeIdents returns the size identifiers used in a node.
func SizeIdents(n Node) []*IdentSize {
	return Collect[*IdentSize](n)
}
