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

// Package lower lowers a checked flow into a graph of operators.
//
// Flows with a body are inlined. Every call to a flow without a body
// becomes an operator node and every trainable parameter becomes an
// initializer. All shapes of the graph are concrete.
package lower

import (
	"slices"

	"fortio.org/safecast"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/nn/base/stringseq"
	"github.com/gx-org/nn/base/uname"
	"github.com/gx-org/nn/build/analyzer"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/checker"
	"github.com/gx-org/nn/build/poly"
	"github.com/gx-org/nn/build/scope"
	"github.com/gx-org/nn/build/types"
)

// Target is the flow to lower.
type Target struct {
	// Source is the path of the file declaring the flow.
	Source string
	// Flow is the name of the flow.
	Flow string
	// Sizes are the values of the sizes of the flow.
	Sizes map[string]int64
}

type lowerer struct {
	c     *checker.Context
	graph *Graph
	names *uname.Unique
	err   error
}

// frame is the lowering of the body of one flow call.
type frame struct {
	ds     *scope.DeclarationScope
	prefix string
	// lookup maps the sizes of the flow to constants.
	lookup poly.Lookup
	// batch are the leading axes passed through by all enclosing calls.
	batch []int
	env   map[*checker.Vertex]string
}

// Lower a flow into a graph.
func Lower(c *checker.Context, target Target) (*Graph, error) {
	if !c.Diagnostics().Empty() {
		return nil, errors.Errorf("cannot lower %s: the workspace has errors:\n%v", target.Flow, c.Diagnostics())
	}
	ds, err := analyzer.Decl(c, analyzer.Target{Source: target.Source, Flow: target.Flow})
	if err != nil {
		return nil, err
	}
	lookup, err := analyzer.SizeLookup(ds, target.Sizes)
	if err != nil {
		return nil, err
	}
	lw := &lowerer{
		c:     c,
		graph: &Graph{Version: FormatVersion, Name: target.Flow},
		names: uname.New(),
	}
	f := &frame{
		ds:     ds,
		prefix: target.Flow,
		lookup: lookup,
		env:    make(map[*checker.Vertex]string),
	}
	for _, param := range ds.Params {
		v, ok := c.Vertex(param.Node)
		if !ok {
			return nil, errors.Errorf("argument %s of %s has no vertex", param.Name, target.Flow)
		}
		lw.names.Register(param.Name)
		f.env[v] = param.Name
		lw.graph.Inputs = append(lw.graph.Inputs, Value{Name: param.Name, Shape: lw.shape(f, v, f.batch)})
	}
	if out := lw.body(f); out != "" {
		lw.graph.Outputs = append(lw.graph.Outputs, Value{Name: out, Shape: lw.shape(f, c.Return(ds), f.batch)})
	}
	if lw.err != nil {
		return nil, lw.err
	}
	return lw.graph, nil
}

func (lw *lowerer) errorf(f *frame, format string, a ...any) {
	lw.err = multierr.Append(lw.err, errors.Wrap(errors.Errorf(format, a...), f.prefix))
}

func axis(p poly.Polynomial) (int, error) {
	if n, ok := p.Int(); ok {
		if n <= 0 {
			return 0, errors.Errorf("%d is not positive", n)
		}
		return safecast.Conv[int](n)
	}
	if _, ok := p.Constant(); ok {
		return 0, errors.Errorf("%s is not an integer", p)
	}
	return 0, errors.Errorf("%s has no value: missing size(s) %s", p, stringseq.JoinStringer(slices.Values(p.Vars()), ", "))
}

func (lw *lowerer) axes(f *frame, dims []types.SizeType) []int {
	axes := make([]int, len(dims))
	for i, dim := range dims {
		n, err := axis(poly.Assign(dim.Poly, f.lookup))
		if err != nil {
			lw.errorf(f, "dimension %d of %s: %v", i, types.New(dims...), err)
		}
		axes[i] = n
	}
	return axes
}

// shape returns the concrete shape of a vertex prefixed by batch axes.
func (lw *lowerer) shape(f *frame, v *checker.Vertex, batch []int) shape.Shape {
	sh := shape.Shape{DType: dtype.Float32}
	if v == nil {
		return sh
	}
	tp, ok := v.Type()
	if !ok {
		lw.errorf(f, "the type of %s has not been inferred", v)
		return sh
	}
	sh.AxisLengths = append(slices.Clone(batch), lw.axes(f, tp.Dims)...)
	return sh
}

// body lowers the pipeline of a flow and returns the name of its output.
func (lw *lowerer) body(f *frame) string {
	ret := lw.c.Return(f.ds)
	if ret == nil {
		lw.errorf(f, "flow %s does not return a single value", f.ds.Flow.Name)
		return ""
	}
	return lw.value(f, ret)
}

// value returns the name of the value of a vertex, lowering the
// calls it depends on first.
func (lw *lowerer) value(f *frame, v *checker.Vertex) string {
	if name, ok := f.env[v]; ok {
		return name
	}
	call, ok := v.Node.(*ast.CallExpr)
	if !ok {
		lw.errorf(f, "vertex %s has no value", v)
		return ""
	}
	e, ok := lw.c.GetEdge(call)
	if !ok {
		lw.errorf(f, "call to %s has no edge", call.Callee.Name)
		return ""
	}
	name := lw.edge(f, e)
	f.env[v] = name
	return name
}

func trainableName(call *ast.CallExpr) string {
	for _, arg := range call.Args {
		if s, ok := arg.(*ast.StringLit); ok {
			return s.Value
		}
	}
	return "param"
}

func (lw *lowerer) edge(f *frame, e *checker.Edge) string {
	if e.Kind == checker.TrainableParameterCall {
		param := trainableName(e.Call)
		name := lw.names.Name(f.prefix + "/" + param)
		lw.graph.Initializers = append(lw.graph.Initializers, Initializer{
			Name:  name,
			Param: param,
			Shape: lw.shape(f, e.ToSolve, nil),
		})
		return name
	}
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = lw.value(f, arg)
	}
	name := lw.names.Name(f.prefix + "/" + e.Name())
	if e.Callee.Flow.HasBody() {
		return lw.inline(f, e, name, args)
	}
	lw.graph.Nodes = append(lw.graph.Nodes, Node{
		Name:       name,
		Op:         e.Name(),
		Inputs:     args,
		Output:     Value{Name: name, Shape: lw.shape(f, e.ToSolve, f.batch)},
		Attributes: lw.attributes(f, e),
	})
	return name
}

// inline lowers the body of the flow called by an edge.
func (lw *lowerer) inline(f *frame, e *checker.Edge, name string, args []string) string {
	ds := e.Callee.Flow.Decl
	sub := &frame{
		ds:     ds,
		prefix: name,
		lookup: func(v poly.Var) (poly.Polynomial, bool) {
			p, ok := e.Bindings.Lookup(v)
			if !ok {
				return poly.Polynomial{}, false
			}
			return poly.Assign(p, f.lookup), true
		},
		batch: append(slices.Clone(f.batch), lw.axes(f, e.Passthrough)...),
		env:   make(map[*checker.Vertex]string),
	}
	for i, param := range e.Callee.Params {
		sub.env[param] = args[i]
	}
	return lw.body(sub)
}

// attributes returns the sizes bound by a call to an operator.
func (lw *lowerer) attributes(f *frame, e *checker.Edge) map[string]int64 {
	attrs := make(map[string]int64)
	for _, v := range e.Bindings.Vars() {
		p, _ := e.Bindings.Lookup(v)
		if n, ok := poly.Assign(p, f.lookup).Int(); ok {
			attrs[v.String()] = n
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
