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

// Package analyzer computes properties of checked flows.
package analyzer

import (
	"github.com/pkg/errors"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/checker"
	"github.com/gx-org/nn/build/poly"
	"github.com/gx-org/nn/build/scope"
)

// Target identifies a flow in a workspace.
type Target struct {
	// Source is the path of the file declaring the flow.
	Source string
	// Flow is the name of the flow.
	Flow string
}

// Decl returns the declaration of a target flow in a checked workspace.
func Decl(c *checker.Context, target Target) (*scope.DeclarationScope, error) {
	if c.NonRecoverable() {
		return nil, errors.Errorf("cannot analyze %s: the workspace has non recoverable errors", target.Flow)
	}
	flow, err := c.FindFlow(target.Source, target.Flow)
	if err != nil {
		return nil, err
	}
	return flow.Decl, nil
}

// SizeLookup returns a lookup function binding sizes of a declaration,
// given by name, to constants.
func SizeLookup(ds *scope.DeclarationScope, sizes map[string]int64) (poly.Lookup, error) {
	bound := make(map[poly.Var]poly.Polynomial, len(sizes))
	for name, value := range sizes {
		size, ok := ds.Sizes.Load(name)
		if !ok {
			return nil, errors.Errorf("flow %s has no size %s", ds.Flow.Name, name)
		}
		bound[size] = poly.Constant(value)
	}
	return func(v poly.Var) (poly.Polynomial, bool) {
		p, ok := bound[v]
		return p, ok
	}, nil
}

type paramCounter struct {
	c      *checker.Context
	counts map[*scope.DeclarationScope]poly.Polynomial
}

// Analyze returns the number of trainable parameters of a flow as a
// polynomial of its sizes. Sizes given by name are substituted in the result.
func Analyze(c *checker.Context, target Target, sizes map[string]int64) (poly.Polynomial, error) {
	ds, err := Decl(c, target)
	if err != nil {
		return poly.Polynomial{}, err
	}
	lookup, err := SizeLookup(ds, sizes)
	if err != nil {
		return poly.Polynomial{}, err
	}
	pc := paramCounter{c: c, counts: make(map[*scope.DeclarationScope]poly.Polynomial)}
	count, err := pc.count(ds)
	if err != nil {
		return poly.Polynomial{}, err
	}
	return poly.Assign(count, lookup), nil
}

// count returns the number of parameters of a flow as a polynomial
// of the sizes of the flow.
func (pc paramCounter) count(ds *scope.DeclarationScope) (poly.Polynomial, error) {
	if p, ok := pc.counts[ds]; ok {
		return p, nil
	}
	var terms []poly.Polynomial
	for _, call := range ast.Calls(ds.Decl) {
		e, ok := pc.c.GetEdge(call)
		if !ok {
			return poly.Polynomial{}, errors.Errorf("%s: call to %s has not been checked", ds.Flow.Name, call.Callee.Name)
		}
		switch e.Kind {
		case checker.TrainableParameterCall:
			dims := make([]poly.Polynomial, len(e.SizeArgs))
			for i, size := range e.SizeArgs {
				dims[i] = size.Poly
			}
			terms = append(terms, poly.Mul(dims...))
		case checker.UserFlowCall:
			sub, err := pc.count(e.Callee.Flow.Decl)
			if err != nil {
				return poly.Polynomial{}, err
			}
			if sub.IsZero() {
				continue
			}
			if !e.Passed {
				return poly.Polynomial{}, errors.Errorf("%s: the shapes of the call to %s have not been inferred", ds.Flow.Name, e.Name())
			}
			terms = append(terms, poly.Assign(sub, e.Bindings.Lookup))
		}
	}
	count := poly.Add(terms...)
	pc.counts[ds] = count
	return count, nil
}
