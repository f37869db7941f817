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

// Package scope resolves the names of a workspace: flows, sizes and values.
package scope

import (
	"iter"
	"strconv"

	"github.com/gx-org/nn/base/ordered"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/poly"
	"github.com/gx-org/nn/build/types"
)

type (
	// Size is a size variable declared by a flow.
	// Two flows declaring the same name have two different sizes.
	Size struct {
		Name string
		Decl *DeclarationScope
		// Nodes are all the occurrences of the size in the declaration.
		Nodes []ast.Node

		id int
	}

	// Value is a named tensor value in a flow: an argument or an assignment.
	Value struct {
		Name string
		// Node is an *ast.Argument or an *ast.AssignExpr.
		Node ast.Node
		// Index of the argument or -1 for assignments.
		Index int
	}

	// Builtin identifies flows provided by the language.
	Builtin int

	// Flow is the target of a call.
	Flow struct {
		Name    string
		Builtin Builtin
		// Decl is the scope of the declaration of the flow, nil for builtins.
		Decl *DeclarationScope
	}

	// DeclarationScope is the scope of one flow declaration.
	DeclarationScope struct {
		Decl *ast.Declaration
		File *FileScope
		Flow *Flow

		// Sizes maps size names to sizes, in order of declaration.
		Sizes *ordered.Map[string, *Size]
		// SizeParams are the sizes declared between brackets.
		SizeParams []*Size
		// Params are the arguments of the flow.
		Params []*Value
		// Values are all the values declared in the flow.
		Values []*Value

		sizeRefs  map[ast.NodeID]*Size
		valueRefs map[ast.NodeID]*Value
		callees   map[ast.NodeID]*Flow
	}

	// FileScope is the scope of a source file.
	FileScope struct {
		File *ast.File
		// Decls are the declarations of the file in source order.
		Decls []*DeclarationScope
		// Flows are all the flows visible from the file:
		// builtins, declarations, and imports.
		Flows *ordered.Map[string, *Flow]

		declared *ordered.Map[string, *Flow]
	}

	// WorkspaceScope maps file paths to their scope.
	WorkspaceScope struct {
		Builtins *ordered.Map[string, *Flow]

		files *ordered.Map[string, *FileScope]
	}
)

// Builtin flows.
const (
	NotBuiltin Builtin = iota
	// Trainable declares a learned parameter: Trainable[dims...]('name').
	Trainable
)

var _ poly.Var = (*Size)(nil)

// String returns the name of the size.
func (s *Size) String() string {
	return s.Name
}

// Key uniquely identifies the size in a workspace.
func (s *Size) Key() string {
	return s.Name + "#" + strconv.Itoa(s.id)
}

// IsParam returns true if the value is an argument of the flow.
func (v *Value) IsParam() bool {
	return v.Index >= 0
}

func (f *Flow) String() string {
	return f.Name
}

// HasBody returns true if the flow is defined by a pipeline.
func (f *Flow) HasBody() bool {
	return f.Decl != nil && f.Decl.Decl.HasBody()
}

// SizeOf returns the size referenced by a size identifier of the declaration.
func (ds *DeclarationScope) SizeOf(id *ast.IdentSize) (*Size, bool) {
	s, ok := ds.sizeRefs[id.ID()]
	return s, ok
}

// VarResolver returns a function resolving size identifiers of the declaration.
func (ds *DeclarationScope) VarResolver() types.VarResolver {
	return func(id *ast.IdentSize) (poly.Var, bool) {
		s, ok := ds.SizeOf(id)
		if !ok {
			return nil, false
		}
		return s, true
	}
}

// IsFree returns true for the sizes declared by the flow.
func (ds *DeclarationScope) IsFree(v poly.Var) bool {
	s, ok := v.(*Size)
	return ok && s.Decl == ds
}

// ValueOf returns the value referenced by an identifier expression.
func (ds *DeclarationScope) ValueOf(id *ast.IdentExpr) (*Value, bool) {
	v, ok := ds.valueRefs[id.ID()]
	return v, ok
}

// CalleeOf returns the flow called by a call expression.
func (ds *DeclarationScope) CalleeOf(call *ast.CallExpr) (*Flow, bool) {
	f, ok := ds.callees[call.ID()]
	return f, ok
}

// Flow returns the flow visible from the file given its name.
func (fs *FileScope) Flow(name string) (*Flow, bool) {
	return fs.Flows.Load(name)
}

// Declared returns a flow declared in the file.
func (fs *FileScope) Declared(name string) (*Flow, bool) {
	return fs.declared.Load(name)
}

// File returns the scope of a file given its path.
func (ws *WorkspaceScope) File(path string) (*FileScope, bool) {
	return ws.files.Load(path)
}

// Files iterates over the scope of all files.
func (ws *WorkspaceScope) Files() iter.Seq[*FileScope] {
	return ws.files.Values()
}

// Decls iterates over all declarations of the workspace.
func (ws *WorkspaceScope) Decls() iter.Seq[*DeclarationScope] {
	return func(yield func(*DeclarationScope) bool) {
		for fs := range ws.Files() {
			for _, ds := range fs.Decls {
				if !yield(ds) {
					return
				}
			}
		}
	}
}
