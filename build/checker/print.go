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
	"io"
	"slices"
	"strings"

	"github.com/gx-org/nn/base/iter"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/scope"
)

func (e *Edge) status() string {
	switch {
	case e.Passed:
		return "passed"
	case e.Failed:
		return "failed"
	}
	return "pending"
}

func (c *Context) fprintDecl(b *strings.Builder, ds *scope.DeclarationScope) {
	fmt.Fprintf(b, "  flow %s\n", ds.Flow.Name)
	inDecl := func(v *Vertex) bool { return v.Decl == ds }
	for v := range iter.Filter(slices.Values(c.ordered), inDecl) {
		arg, isArg := v.Node.(*ast.Argument)
		if !isArg {
			continue
		}
		fmt.Fprintf(b, "    arg %s %s\n", arg.Name.Name, v)
	}
	for i, e := range c.edges {
		if e.Decl != ds {
			continue
		}
		fmt.Fprintf(b, "    e%d %s %s (%s)\n", i, e.Kind, e, e.status())
	}
	if ret := c.returns[ds]; ret != nil {
		fmt.Fprintf(b, "    return %s\n", ret)
	}
}

// Fprint writes the vertices and edges of all flows of the workspace.
func (c *Context) Fprint(w io.Writer) error {
	var b strings.Builder
	if c.Scope != nil {
		for fs := range c.Scope.Files() {
			fmt.Fprintf(&b, "%s\n", fs.File.Path)
			for _, ds := range fs.Decls {
				c.fprintDecl(&b, ds)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the graph of the workspace.
func (c *Context) String() string {
	var b strings.Builder
	c.Fprint(&b)
	return b.String()
}
