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
	"context"
	"slices"

	"github.com/gx-org/nn/base/iter"
	"github.com/gx-org/nn/base/stringseq"
	"github.com/gx-org/nn/build/fmterr"
	"github.com/gx-org/nn/build/types"
)

// pending iterates over the edges which have neither passed nor failed.
func (c *Context) pending() func(func(*Edge) bool) {
	return iter.Filter(slices.Values(c.edges), func(e *Edge) bool {
		return !e.Passed && !e.Failed
	})
}

// solve solves edges until all edges have passed or
// no edge has been solved during a pass.
func (c *Context) solve(ctx context.Context) {
	passed, lastPassed := 0, -1
	for passed < len(c.edges) && passed != lastPassed {
		lastPassed = passed
		for e := range c.pending() {
			if c.solveEdge(e) {
				passed++
			}
		}
		c.passCounts = append(c.passCounts, passed)
		c.logger.DebugContext(ctx, "solver pass",
			"pass", len(c.passCounts),
			"passed", passed,
			"edges", len(c.edges),
			"failed", iter.Count(iter.Filter(slices.Values(c.edges), func(e *Edge) bool { return e.Failed })),
		)
	}
}

// fail reports an error on the call of an edge.
// The edge is never attempted again.
func (c *Context) fail(e *Edge, kind fmterr.Kind, format string, a ...any) bool {
	e.Failed = true
	return c.appender(e.Decl).Appendf(e.Call, kind, format, a...)
}

func (c *Context) argTypes(e *Edge) ([]types.Type, bool) {
	tps := make([]types.Type, len(e.Args))
	for i, arg := range e.Args {
		tp, ok := arg.Type()
		if !ok {
			return nil, false
		}
		tps[i] = tp
	}
	return tps, true
}

// solveEdge tries to compute the type of the vertex of the call of an edge.
// Returns true if the edge has passed.
func (c *Context) solveEdge(e *Edge) bool {
	args, ok := c.argTypes(e)
	if !ok {
		return false
	}
	switch e.Kind {
	case TrainableParameterCall:
		return c.pass(e, types.New(e.SizeArgs...), types.NewBindings(), nil)
	default:
		return c.solveUserFlow(e, args)
	}
}

func (c *Context) solveUserFlow(e *Edge, args []types.Type) bool {
	ds := e.Callee.Flow.Decl
	name := e.Name()
	if len(args) != len(ds.Params) {
		return c.fail(e, fmterr.ArgumentMismatch, "Flow '%s' expects %d argument(s), got %d.", name, len(ds.Params), len(args))
	}
	if len(e.SizeArgs) > len(ds.SizeParams) {
		return c.fail(e, fmterr.ShapeMismatch, "Flow '%s' has %d size parameter(s), got %d.", name, len(ds.SizeParams), len(e.SizeArgs))
	}
	bindings := types.NewBindings()
	for i, size := range e.SizeArgs {
		if err := bindings.Bind(ds.SizeParams[i], size.Poly); err != nil {
			return c.fail(e, fmterr.ShapeMismatch, "Size argument %d of '%s': %v.", i, name, err)
		}
	}
	var passthrough []types.SizeType
	var deferred []types.Constraint
	for i, actual := range args {
		formal, ok := e.Callee.Params[i].Type()
		if !ok {
			return false
		}
		u, err := types.IsAssignable(actual, formal, ds.IsFree)
		if err != nil {
			return c.fail(e, fmterr.ShapeMismatch, "Argument %d of '%s': %s is not assignable to %s: %v.", i, name, actual, formal, err)
		}
		if err := bindings.Apply(u); err != nil {
			return c.fail(e, fmterr.ShapeMismatch, "Argument %d of '%s': %v.", i, name, err)
		}
		deferred = append(deferred, u.Deferred...)
		if len(u.Passthrough) == 0 {
			continue
		}
		if passthrough == nil {
			passthrough = u.Passthrough
			continue
		}
		if !types.IsSame(types.New(passthrough...), types.New(u.Passthrough...)) {
			return c.fail(e, fmterr.ShapeMismatch, "Argument %d of '%s': leading dimensions %s do not match %s.", i, name, types.New(u.Passthrough...), types.New(passthrough...))
		}
	}
	if err := bindings.Check(deferred); err != nil {
		return c.fail(e, fmterr.ShapeMismatch, "Call to '%s': %v.", name, err)
	}
	var out types.Type
	switch {
	case e.Callee.ReturnType != nil:
		out = *e.Callee.ReturnType
	case e.Callee.Return != nil:
		var ok bool
		if out, ok = e.Callee.Return.Type(); !ok {
			return false
		}
	default:
		return false
	}
	out = out.Assign(bindings.Lookup)
	if dim, ok := out.DividesByZero(); ok {
		return c.fail(e, fmterr.ShapeMismatch, "Division by zero in dimension %d of %s returned by '%s'.", dim, out, name)
	}
	if unbound := slices.Collect(iter.Filter(slices.Values(out.Vars()), ds.IsFree)); len(unbound) > 0 {
		return c.fail(e, fmterr.ShapeMismatch, "Cannot infer size(s) %s of flow '%s'.",
			stringseq.JoinStringer(slices.Values(unbound), ", "), name)
	}
	return c.pass(e, out.Concat(passthrough), bindings, passthrough)
}

func (c *Context) pass(e *Edge, out types.Type, bindings *types.Bindings, passthrough []types.SizeType) bool {
	if !e.ToSolve.setType(out) {
		e.Failed = true
		c.appender(e.Decl).AppendInternalf(e.Call, "type of %s changed to %s", e.ToSolve, out)
		return false
	}
	e.Passed = true
	e.Bindings = bindings
	e.Passthrough = passthrough
	return true
}

// reportUnresolvable reports edges which can never pass because their
// callee has neither a declared return type nor a body returning one value.
// Edges waiting on another edge stay silent: the root cause is reported.
func (c *Context) reportUnresolvable() {
	for e := range c.pending() {
		if e.Kind != UserFlowCall || e.Callee.ReturnType != nil || e.Callee.Return != nil {
			continue
		}
		if _, ok := c.argTypes(e); !ok {
			continue
		}
		c.appender(e.Decl).Appendf(e.Call, fmterr.UnresolvableShape,
			"Cannot resolve the output shape of '%s': the flow has no return type and no body returning a single value.", e.Name())
	}
}

// checkReturnTypes compares the declared return type of flows
// with the type of the vertex returned by their body.
func (c *Context) checkReturnTypes() {
	for ds := range c.Scope.Decls() {
		ret := c.returns[ds]
		if ret == nil || ds.Decl.Return == nil {
			continue
		}
		inferred, ok := ret.Type()
		if !ok {
			continue
		}
		declared := c.callee(ds.Flow).ReturnType
		if declared == nil || types.IsSame(*declared, inferred) {
			continue
		}
		c.appender(ds).Appendf(ret.Node, fmterr.ReturnTypeMismatch, "Return type mismatch: %s != %s.", declared, inferred)
	}
}
