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
	"strings"

	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/scope"
	"github.com/gx-org/nn/build/types"
)

// CallKind is the kind of flow called by an edge.
type CallKind int

const (
	// UserFlowCall calls a flow declared in a source file.
	UserFlowCall CallKind = iota
	// TrainableParameterCall declares a learned parameter.
	TrainableParameterCall
)

func (k CallKind) String() string {
	switch k {
	case UserFlowCall:
		return "call"
	case TrainableParameterCall:
		return "trainable"
	}
	return fmt.Sprintf("CallKind(%d)", int(k))
}

type (
	// Callee is a flow paired with the vertex its body returns.
	Callee struct {
		Flow *scope.Flow
		// Return is the vertex returned by the body of the flow.
		// It is nil for builtins, flows without a body, and flows
		// whose last stage does not produce exactly one value.
		Return *Vertex
		// ReturnType is the declared return type of the flow, nil if none.
		ReturnType *types.Type
		// Params are the vertices of the arguments of the flow.
		Params []*Vertex
	}

	// Edge is the application of a flow to argument vertices.
	Edge struct {
		Call *ast.CallExpr
		// Decl is the declaration in which the call is.
		Decl *scope.DeclarationScope
		Kind CallKind
		// Args are the argument vertices: values piped from the previous
		// stage of the pipeline first, followed by explicit arguments.
		Args []*Vertex
		// SizeArgs are the sizes given between brackets in the call.
		SizeArgs []types.SizeType
		Callee   *Callee
		// ToSolve is the vertex of the call.
		ToSolve *Vertex
		// Passed is true once the type of ToSolve has been computed.
		Passed bool
		// Failed is true if the edge cannot be solved because of an error.
		Failed bool

		// Bindings are the sizes of the callee bound by the call.
		// Set when the edge has passed.
		Bindings *types.Bindings
		// Passthrough are the leading dimensions of the arguments
		// not consumed by the callee. They prefix the output type.
		Passthrough []types.SizeType
	}
)

// Name returns the name of the called flow.
func (e *Edge) Name() string {
	return e.Callee.Flow.Name
}

func (e *Edge) String() string {
	var b strings.Builder
	b.WriteString(e.Name())
	if len(e.SizeArgs) > 0 {
		sizes := make([]string, len(e.SizeArgs))
		for i, size := range e.SizeArgs {
			sizes[i] = size.String()
		}
		fmt.Fprintf(&b, "[%s]", strings.Join(sizes, ", "))
	}
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = fmt.Sprintf("v%d", arg.ID)
	}
	fmt.Fprintf(&b, "(%s) -> %s", strings.Join(args, ", "), e.ToSolve)
	return b.String()
}

func (c *Context) callee(flow *scope.Flow) *Callee {
	if cl, ok := c.callees[flow]; ok {
		return cl
	}
	cl := &Callee{Flow: flow}
	c.callees[flow] = cl
	ds := flow.Decl
	if ds == nil {
		return cl
	}
	cl.Return = c.returns[ds]
	for _, param := range ds.Params {
		cl.Params = append(cl.Params, c.vertices[param.Node.ID()])
	}
	if ds.Decl.Return != nil {
		tp, err := types.FromNode(ds.Decl.Return, ds.VarResolver())
		if err != nil {
			c.appender(ds).AppendInternalf(ds.Decl.Return, "cannot build the return type of %s: %v", flow.Name, err)
		} else {
			cl.ReturnType = &tp
		}
	}
	return cl
}

func (c *Context) buildEdges() {
	for ds := range c.Scope.Decls() {
		for _, call := range ast.Calls(ds.Decl) {
			c.buildEdge(ds, call)
		}
	}
}

func (c *Context) buildEdge(ds *scope.DeclarationScope, call *ast.CallExpr) {
	app := c.appender(ds)
	flow, ok := ds.CalleeOf(call)
	if !ok {
		app.AppendInternalf(call, "call to %s has not been resolved", call.Callee.Name)
		return
	}
	toSolve, ok := c.vertices[call.ID()]
	if !ok {
		app.AppendInternalf(call, "call to %s has no vertex", call.Callee.Name)
		return
	}
	e := &Edge{
		Call:    call,
		Decl:    ds,
		Callee:  c.callee(flow),
		ToSolve: toSolve,
		Args:    append([]*Vertex{}, c.implicit[call.ID()]...),
	}
	if flow.Builtin == scope.Trainable {
		e.Kind = TrainableParameterCall
	}
	for _, size := range call.Sizes {
		st, err := types.FromExpr(size, ds.VarResolver())
		if err != nil {
			app.AppendInternalf(size, "cannot build size: %v", err)
			return
		}
		e.SizeArgs = append(e.SizeArgs, st)
	}
	for _, arg := range call.Args {
		if _, isString := arg.(*ast.StringLit); isString {
			continue
		}
		v, ok := c.vertices[arg.ID()]
		if !ok {
			app.AppendInternalf(arg, "argument has no vertex")
			return
		}
		e.Args = append(e.Args, v)
	}
	c.edges = append(c.edges, e)
	c.calls[call.ID()] = e
}
