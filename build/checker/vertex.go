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

package checker

import (
	"fmt"

	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/scope"
	"github.com/gx-org/nn/build/types"
)

// Vertex is a tensor value produced by an expression.
type Vertex struct {
	// ID of the vertex in the context.
	ID int
	// Node is the expression producing the value:
	// an *ast.Argument for the arguments of a flow or an *ast.CallExpr.
	Node ast.Node
	// Decl is the declaration in which the vertex is defined.
	Decl *scope.DeclarationScope

	typ *types.Type
}

// Type returns the type of the vertex, if it has been resolved.
func (v *Vertex) Type() (types.Type, bool) {
	if v.typ == nil {
		return types.Type{}, false
	}
	return *v.typ, true
}

// setType sets the type of the vertex. A type, once set, cannot change.
func (v *Vertex) setType(tp types.Type) bool {
	if v.typ != nil {
		return types.IsSame(*v.typ, tp)
	}
	v.typ = &tp
	return true
}

func (v *Vertex) String() string {
	if v.typ == nil {
		return fmt.Sprintf("v%d", v.ID)
	}
	return fmt.Sprintf("v%d: %s", v.ID, v.typ)
}

func (c *Context) newVertex(ds *scope.DeclarationScope, node ast.Node) *Vertex {
	v := &Vertex{ID: len(c.ordered), Node: node, Decl: ds}
	c.ordered = append(c.ordered, v)
	c.vertices[node.ID()] = v
	return v
}

// alias registers the vertex of another node for a node.
func (c *Context) alias(node ast.Node, v *Vertex) {
	if v == nil {
		return
	}
	c.vertices[node.ID()] = v
}

func (c *Context) buildVertices() {
	for ds := range c.Scope.Decls() {
		vb := vertexBuilder{Context: c, ds: ds}
		vb.build()
	}
}

type vertexBuilder struct {
	*Context
	ds *scope.DeclarationScope
}

func (vb vertexBuilder) build() {
	params := make([]*Vertex, len(vb.ds.Params))
	for i, param := range vb.ds.Params {
		arg := param.Node.(*ast.Argument)
		v := vb.newVertex(vb.ds, arg)
		tp, err := types.FromNode(arg.Type, vb.ds.VarResolver())
		if err != nil {
			vb.appender(vb.ds).AppendInternalf(arg, "cannot build the type of argument %s: %v", param.Name, err)
		} else {
			v.setType(tp)
		}
		params[i] = v
	}
	decl := vb.ds.Decl
	if !decl.HasBody() {
		return
	}
	var inputs []*Vertex
	if decl.FirstPipe {
		inputs = params
	}
	for _, stage := range decl.Pipeline {
		inputs = vb.stage(stage, inputs)
	}
	if len(inputs) == 1 {
		vb.returns[vb.ds] = inputs[0]
	}
}

// stage builds the vertices of a pipeline stage given the values
// produced by the previous stage. It returns the values produced by the stage.
func (vb vertexBuilder) stage(expr ast.Expr, inputs []*Vertex) []*Vertex {
	switch exprT := expr.(type) {
	case *ast.CallExpr:
		return []*Vertex{vb.call(exprT, inputs)}
	case *ast.AssignExpr:
		var v *Vertex
		if call, ok := exprT.Value.(*ast.CallExpr); ok {
			v = vb.call(call, inputs)
		} else {
			v = vb.plain(exprT.Value)
		}
		if v == nil {
			return nil
		}
		vb.alias(exprT, v)
		return []*Vertex{v}
	case *ast.TupleExpr:
		var vs []*Vertex
		for _, elt := range exprT.Elts {
			if v := vb.plain(elt); v != nil {
				vs = append(vs, v)
			}
		}
		return vs
	case *ast.IdentExpr:
		if v := vb.plain(exprT); v != nil {
			return []*Vertex{v}
		}
	}
	return nil
}

// call creates the vertex of a call. Inputs are passed implicitly as the
// first arguments of the call.
func (vb vertexBuilder) call(call *ast.CallExpr, inputs []*Vertex) *Vertex {
	v := vb.newVertex(vb.ds, call)
	if len(inputs) > 0 {
		vb.implicit[call.ID()] = inputs
	}
	for _, arg := range call.Args {
		vb.plain(arg)
	}
	return v
}

// plain returns the vertex of a plain expression or nil if the
// expression does not produce a tensor.
func (vb vertexBuilder) plain(expr ast.PlainExpr) *Vertex {
	switch exprT := expr.(type) {
	case *ast.CallExpr:
		return vb.call(exprT, nil)
	case *ast.IdentExpr:
		value, ok := vb.ds.ValueOf(exprT)
		if !ok {
			return nil
		}
		v, ok := vb.vertices[value.Node.ID()]
		if !ok {
			return nil
		}
		vb.alias(exprT, v)
		return v
	}
	return nil
}
