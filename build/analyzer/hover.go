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

package analyzer

import (
	"fmt"
	"strings"

	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/checker"
)

func contains(outer, inner ast.Position) bool {
	return outer.Pos <= inner.Pos && inner.End <= outer.End
}

// PathAt returns the nodes of a file covering a byte offset,
// from the file down to the smallest node.
func PathAt(file *ast.File, offset int) []ast.Node {
	var path []ast.Node
	ast.Inspect(file, func(n ast.Node) bool {
		if !n.Span().Contains(offset) {
			return false
		}
		for len(path) > 0 && !contains(path[len(path)-1].Span(), n.Span()) {
			path = path[:len(path)-1]
		}
		path = append(path, n)
		return true
	})
	return path
}

// NodeAt returns the smallest node covering a byte offset.
func NodeAt(file *ast.File, offset int) (ast.Node, bool) {
	path := PathAt(file, offset)
	if len(path) == 0 {
		return nil, false
	}
	return path[len(path)-1], true
}

// Signature returns the source representation of the signature of a flow.
func Signature(decl *ast.Declaration) string {
	var b strings.Builder
	b.WriteString(decl.Name.Name)
	if len(decl.SizeParams) > 0 {
		names := make([]string, len(decl.SizeParams))
		for i, name := range decl.SizeParams {
			names[i] = name.Name
		}
		fmt.Fprintf(&b, "[%s]", strings.Join(names, ", "))
	}
	args := make([]string, len(decl.Args))
	for i, arg := range decl.Args {
		args[i] = arg.Name.Name + ": " + ast.TypeString(arg.Type)
	}
	fmt.Fprintf(&b, "(%s)", strings.Join(args, ", "))
	if decl.Return != nil {
		b.WriteString(": " + ast.TypeString(decl.Return))
	}
	return b.String()
}

func typed(c *checker.Context, name string, node ast.Node) string {
	tp, err := c.GetType(node)
	if err != nil {
		return name + ": ?"
	}
	return name + ": " + tp.String()
}

func hoverSize(c *checker.Context, file *ast.File, path []ast.Node, id *ast.IdentSize) string {
	name := "size " + id.Name.Name
	var decl *ast.Declaration
	for _, n := range path {
		if d, ok := n.(*ast.Declaration); ok {
			decl = d
		}
	}
	fs, ok := c.Scope.File(file.Path)
	if decl == nil || !ok {
		return name
	}
	for _, ds := range fs.Decls {
		if ds.Decl != decl {
			continue
		}
		if size, ok := ds.SizeOf(id); ok {
			return name + " of " + size.Decl.Flow.Name
		}
	}
	return name
}

// Hover returns a description of the node at a byte offset of a file:
// the type of a tensor value, the flow declaring a size, or the
// signature of a flow.
func Hover(c *checker.Context, file *ast.File, offset int) (string, bool) {
	if c.Scope == nil {
		return "", false
	}
	path := PathAt(file, offset)
	for i := len(path) - 1; i >= 0; i-- {
		switch n := path[i].(type) {
		case *ast.IdentSize:
			return hoverSize(c, file, path[:i], n), true
		case *ast.Argument:
			return typed(c, n.Name.Name, n), true
		case *ast.AssignExpr:
			return typed(c, n.Name.Name, n), true
		case *ast.IdentExpr:
			return typed(c, n.Name.Name, n), true
		case *ast.CallExpr:
			return typed(c, n.Callee.Name, n), true
		case *ast.Declaration:
			return "flow " + Signature(n), true
		}
	}
	return "", false
}
