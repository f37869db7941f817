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

package scope

import (
	"slices"

	"github.com/gx-org/nn/base/ordered"
	basescope "github.com/gx-org/nn/base/scope"
	"github.com/gx-org/nn/base/stringseq"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/fmterr"
	"github.com/gx-org/nn/build/workspace"
)

type resolver struct {
	ws     *workspace.Workspace
	errs   *fmterr.Errors
	scope  *WorkspaceScope
	nextID int
}

// Builtins returns the flows provided by the language.
func Builtins() *ordered.Map[string, *Flow] {
	builtins := ordered.NewMap[string, *Flow]()
	builtins.Store("Trainable", &Flow{Name: "Trainable", Builtin: Trainable})
	return builtins
}

// Resolve builds the scopes of all files of a workspace.
// Diagnostics are appended to errs. Duplicated declarations, undeclared
// names and circular flows mark errs as non recoverable.
func Resolve(ws *workspace.Workspace, errs *fmterr.Errors) *WorkspaceScope {
	r := &resolver{
		ws:   ws,
		errs: errs,
		scope: &WorkspaceScope{
			Builtins: Builtins(),
			files:    ordered.NewMap[string, *FileScope](),
		},
	}
	for file := range ws.Files() {
		r.declareFile(file)
	}
	for ds := range r.scope.Decls() {
		r.resolveSignature(ds)
	}
	for fs := range r.scope.Files() {
		r.resolveImports(fs)
	}
	for ds := range r.scope.Decls() {
		r.resolveBody(ds)
	}
	r.detectCycles()
	return r.scope
}

func (r *resolver) appender(fs *FileScope) *fmterr.Appender {
	return r.errs.NewAppender(fs.File)
}

func (r *resolver) declareFile(file *ast.File) {
	fs := &FileScope{
		File:     file,
		Flows:    r.scope.Builtins.Clone(),
		declared: ordered.NewMap[string, *Flow](),
	}
	r.scope.files.Store(file.Path, fs)
	for _, decl := range file.Decls {
		ds := &DeclarationScope{
			Decl:      decl,
			File:      fs,
			Sizes:     ordered.NewMap[string, *Size](),
			sizeRefs:  make(map[ast.NodeID]*Size),
			valueRefs: make(map[ast.NodeID]*Value),
			callees:   make(map[ast.NodeID]*Flow),
		}
		ds.Flow = &Flow{Name: decl.Name.Name, Decl: ds}
		fs.Decls = append(fs.Decls, ds)
		if fs.declared.Has(ds.Flow.Name) {
			r.appender(fs).Fatalf(decl.Name, fmterr.DuplicateFlowName, "Duplicate function name '%s'.", ds.Flow.Name)
			continue
		}
		fs.declared.Store(ds.Flow.Name, ds.Flow)
		fs.Flows.Store(ds.Flow.Name, ds.Flow)
	}
}

// declareSize declares a size in a declaration if it does not exist yet
// and records the occurrence of the size.
func (r *resolver) declareSize(ds *DeclarationScope, name string, node ast.Node) *Size {
	s, ok := ds.Sizes.Load(name)
	if !ok {
		s = &Size{Name: name, Decl: ds, id: r.nextID}
		r.nextID++
		ds.Sizes.Store(name, s)
	}
	s.Nodes = append(s.Nodes, node)
	return s
}

// useSize records the occurrence of a size that needs to be declared.
func (r *resolver) useSize(ds *DeclarationScope, id *ast.IdentSize) {
	s, ok := ds.Sizes.Load(id.Name.Name)
	if !ok {
		r.appender(ds.File).Fatalf(id, fmterr.UndeclaredSize, "Using undeclared size name '%s'.", id.Name.Name)
		return
	}
	s.Nodes = append(s.Nodes, id)
	ds.sizeRefs[id.ID()] = s
}

func (r *resolver) resolveSignature(ds *DeclarationScope) {
	decl := ds.Decl
	for _, ident := range decl.SizeParams {
		if ds.Sizes.Has(ident.Name) {
			r.appender(ds.File).Fatalf(ident, fmterr.DuplicateSizeName, "Duplicate size name '%s'.", ident.Name)
			continue
		}
		ds.SizeParams = append(ds.SizeParams, r.declareSize(ds, ident.Name, ident))
	}
	for i, arg := range decl.Args {
		for _, id := range ast.SizeIdents(arg.Type) {
			ds.sizeRefs[id.ID()] = r.declareSize(ds, id.Name.Name, id)
		}
		v := &Value{Name: arg.Name.Name, Node: arg, Index: i}
		ds.Params = append(ds.Params, v)
		ds.Values = append(ds.Values, v)
	}
	if decl.Return != nil {
		for _, id := range ast.SizeIdents(decl.Return) {
			r.useSize(ds, id)
		}
	}
}

// export looks for a flow exported by a file: a flow declared in the file or
// a flow the file imports itself.
func (r *resolver) export(fs *FileScope, name string, visited map[*FileScope]bool) (*Flow, bool) {
	if flow, ok := fs.declared.Load(name); ok {
		return flow, true
	}
	visited[fs] = true
	for _, dep := range r.ws.Dependencies(fs.File) {
		if dep.Target == nil {
			continue
		}
		target, ok := r.scope.File(dep.Target.Path)
		if !ok || visited[target] {
			continue
		}
		for _, imported := range dep.Import.Names {
			if imported.Name != name {
				continue
			}
			if flow, ok := r.export(target, name, visited); ok {
				return flow, true
			}
		}
	}
	return nil, false
}

func (r *resolver) resolveImports(fs *FileScope) {
	app := r.appender(fs)
	for _, dep := range r.ws.Dependencies(fs.File) {
		if dep.Target == nil {
			// Reported when loading the workspace.
			continue
		}
		target, ok := r.scope.File(dep.Target.Path)
		if !ok {
			app.AppendInternalf(dep.Import, "file %s not in the workspace scope", dep.Target.Path)
			continue
		}
		for _, name := range dep.Import.Names {
			flow, ok := r.export(target, name.Name, map[*FileScope]bool{fs: true})
			if !ok {
				app.Appendf(name, fmterr.MissingImportMember, "File '%s' has no member %s.", dep.Import.Target.Value, name.Name)
				continue
			}
			if prev, ok := fs.Flows.Load(name.Name); ok && prev != flow && prev.Builtin == NotBuiltin {
				app.Fatalf(name, fmterr.DuplicateFlowName, "Duplicate function name '%s'.", name.Name)
				continue
			}
			fs.Flows.Store(name.Name, flow)
		}
	}
}

type bodyResolver struct {
	*resolver
	ds  *DeclarationScope
	app *fmterr.Appender
	// visible are the values which can be referenced at this point of the pipeline.
	visible *basescope.RWScope[*Value]
}

func (r *resolver) resolveBody(ds *DeclarationScope) {
	params := basescope.New[*Value](nil)
	for _, param := range ds.Params {
		params.DefineOnce(param.Name, param)
	}
	br := &bodyResolver{
		resolver: r,
		ds:       ds,
		app:      r.appender(ds.File),
		visible:  basescope.New(params.ReadOnly()),
	}
	for _, expr := range ds.Decl.Pipeline {
		br.expr(expr)
	}
}

func (br *bodyResolver) expr(expr ast.Expr) {
	switch exprT := expr.(type) {
	case *ast.AssignExpr:
		br.expr(exprT.Value)
		v := &Value{Name: exprT.Name.Name, Node: exprT, Index: -1}
		br.ds.Values = append(br.ds.Values, v)
		br.visible.Define(v.Name, v)
	case *ast.TupleExpr:
		for _, elt := range exprT.Elts {
			br.expr(elt)
		}
	case *ast.CallExpr:
		br.call(exprT)
	case *ast.IdentExpr:
		v, ok := br.visible.Find(exprT.Name.Name)
		if !ok {
			br.app.Fatalf(exprT, fmterr.UndeclaredValue, "Unknown value '%s'.", exprT.Name.Name)
			return
		}
		br.ds.valueRefs[exprT.ID()] = v
	case *ast.StringLit:
		br.app.Fatalf(exprT, fmterr.InvalidTrainable, "String literal '%s' is only allowed as the name of a Trainable.", exprT.Value)
	default:
		br.app.AppendInternalf(expr, "expression %T not supported", expr)
	}
}

func (br *bodyResolver) call(call *ast.CallExpr) {
	for _, size := range call.Sizes {
		for _, id := range ast.SizeIdents(size) {
			br.useSize(br.ds, id)
		}
	}
	flow, ok := br.ds.File.Flow(call.Callee.Name)
	if !ok {
		br.app.Fatalf(call.Callee, fmterr.UndeclaredFlow, "Unknown flow '%s'.", call.Callee.Name)
	} else {
		br.ds.callees[call.ID()] = flow
	}
	if ok && flow.Builtin == Trainable {
		br.trainable(call)
		return
	}
	for _, arg := range call.Args {
		br.expr(arg)
	}
}

func (br *bodyResolver) trainable(call *ast.CallExpr) {
	if len(call.Args) != 1 {
		br.app.Fatalf(call, fmterr.InvalidTrainable, "Trainable requires exactly one name argument, got %d.", len(call.Args))
		return
	}
	if _, ok := call.Args[0].(*ast.StringLit); !ok {
		br.app.Fatalf(call.Args[0], fmterr.InvalidTrainable, "The argument of Trainable must be a string literal.")
	}
}

func (r *resolver) detectCycles() {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[*DeclarationScope]int)
	reported := make(map[string]bool)
	var stack []*DeclarationScope
	var visit func(ds *DeclarationScope)
	visit = func(ds *DeclarationScope) {
		state[ds] = onStack
		stack = append(stack, ds)
		for _, call := range ast.Calls(ds.Decl) {
			callee, ok := ds.CalleeOf(call)
			if !ok || callee.Decl == nil {
				continue
			}
			switch state[callee.Decl] {
			case unvisited:
				visit(callee.Decl)
			case onStack:
				r.reportCycle(reported, stack, callee.Decl, call)
			}
		}
		stack = stack[:len(stack)-1]
		state[ds] = done
	}
	for ds := range r.scope.Decls() {
		if state[ds] == unvisited {
			visit(ds)
		}
	}
}

func (r *resolver) reportCycle(reported map[string]bool, stack []*DeclarationScope, entry *DeclarationScope, call *ast.CallExpr) {
	start := len(stack) - 1
	for stack[start] != entry {
		start--
	}
	cycle := stack[start:]
	// Identify a cycle independently of its entry point.
	first := 0
	for i, ds := range cycle {
		if ds.Decl.ID() < cycle[first].Decl.ID() {
			first = i
		}
	}
	rotated := append(append([]*DeclarationScope{}, cycle[first:]...), cycle[:first]...)
	key := stringseq.JoinFunc(slices.Values(rotated), func(ds *DeclarationScope) string {
		return ds.File.File.Path + ":" + ds.Flow.Name
	}, ",")
	if reported[key] {
		return
	}
	reported[key] = true
	names := stringseq.JoinFunc(slices.Values(cycle), func(ds *DeclarationScope) string {
		return ds.Flow.Name
	}, ", ")
	last := stack[len(stack)-1]
	r.appender(last.File).Fatalf(call, fmterr.CircularFlow, "Circular flow detected from '%s'.", names)
}
