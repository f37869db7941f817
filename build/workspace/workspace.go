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

// Package workspace loads a set of source files and their imports.
package workspace

import (
	"context"
	"io/fs"
	"iter"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"github.com/gx-org/nn/base/ordered"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/fmterr"
	"github.com/gx-org/nn/build/parser"
)

type (
	// Dependency is an import clause of a file.
	Dependency struct {
		Import *ast.Import
		// Path of the imported file.
		Path string
		// Target is the imported file or nil if it does not exist.
		Target *ast.File
	}

	// Workspace is a set of parsed source files and their dependency graph.
	Workspace struct {
		arena *ast.Arena
		files *ordered.Map[string, *ast.File]
		deps  map[ast.NodeID][]Dependency
		errs  fmterr.Errors
	}

	// ParseFunc parses the content of a file into a new file node of the arena.
	ParseFunc func(arena *ast.Arena, path string, src []byte) (*ast.File, parser.ErrorList)
)

// New returns an empty workspace.
func New() *Workspace {
	return &Workspace{
		arena: ast.NewArena(),
		files: ordered.NewMap[string, *ast.File](),
		deps:  make(map[ast.NodeID][]Dependency),
	}
}

// Arena returns the arena shared by all the files of the workspace.
func (ws *Workspace) Arena() *ast.Arena {
	return ws.arena
}

// Files iterates over the files in the order in which they were added.
func (ws *Workspace) Files() iter.Seq[*ast.File] {
	return ws.files.Values()
}

// File returns a file given its path.
func (ws *Workspace) File(path string) (*ast.File, bool) {
	return ws.files.Load(path)
}

// Len returns the number of files.
func (ws *Workspace) Len() int {
	return ws.files.Size()
}

// Dependencies returns the import clauses of a file with their targets.
func (ws *Workspace) Dependencies(file *ast.File) []Dependency {
	return ws.deps[file.ID()]
}

// Diagnostics returns the diagnostics of the loading:
// syntax errors and missing files.
func (ws *Workspace) Diagnostics() *fmterr.Errors {
	return &ws.errs
}

// AddFile parses a file and adds it to the workspace.
// The imports of the file are linked to the files already in the workspace.
// Call Link once all files have been added to link all the imports.
func (ws *Workspace) AddFile(fsys FileSystem, parse ParseFunc, path string, src []byte) *ast.File {
	file, syntaxErrs := parse(ws.arena, path, src)
	for _, err := range syntaxErrs {
		ws.errs.Append(&fmterr.Diagnostic{
			Kind:     fmterr.SyntaxError,
			Source:   file,
			Message:  err.Msg,
			Position: err.Pos,
		})
	}
	ws.files.Store(path, file)
	deps := make([]Dependency, len(file.Imports))
	for i, imp := range file.Imports {
		deps[i] = Dependency{
			Import: imp,
			Path:   fsys.Resolve(path, imp.Target.Value),
		}
	}
	ws.deps[file.ID()] = deps
	ws.Link()
	return file
}

// Link sets the target of all dependencies of files in the workspace.
func (ws *Workspace) Link() {
	for file := range ws.files.Values() {
		deps := ws.deps[file.ID()]
		for i := range deps {
			deps[i].Target, _ = ws.files.Load(deps[i].Path)
		}
	}
}

// maxConcurrentReads bounds the number of files read at the same time.
const maxConcurrentReads = 8

type loader struct {
	ws    *Workspace
	fsys  FileSystem
	parse ParseFunc
	// queued records the paths already scheduled for loading.
	queued     map[string]bool
	unreadable map[string]bool
}

type request struct {
	path string
	// from is the file importing the path or nil for roots.
	from *ast.File
}

// Load reads and parses root files and, transitively, the files they import.
// A file is read and parsed at most once. Missing files are reported as
// FileNotFound diagnostics in the workspace. Other I/O errors are returned.
func Load(ctx context.Context, fsys FileSystem, parse ParseFunc, roots ...string) (*Workspace, error) {
	if parse == nil {
		parse = parser.ParseFile
	}
	ld := &loader{
		ws:         New(),
		fsys:       fsys,
		parse:      parse,
		queued:     make(map[string]bool),
		unreadable: make(map[string]bool),
	}
	var wave []request
	for _, root := range roots {
		wave = ld.enqueue(wave, request{path: fsys.Join(root)})
	}
	var errs error
	for len(wave) > 0 {
		next, err := ld.loadWave(ctx, wave)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, multierr.Append(errs, ctxErr)
		}
		errs = multierr.Append(errs, err)
		wave = next
	}
	ld.ws.Link()
	ld.ws.reportMissing(ld.unreadable)
	return ld.ws, errs
}

func (ld *loader) enqueue(wave []request, req request) []request {
	if ld.queued[req.path] {
		return wave
	}
	ld.queued[req.path] = true
	return append(wave, req)
}

// loadWave reads the files of a wave concurrently and then parses them
// in order. It returns the requests for the imported files not queued yet.
func (ld *loader) loadWave(ctx context.Context, wave []request) ([]request, error) {
	contents := make([][]byte, len(wave))
	readErrs := make([]error, len(wave))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, req := range wave {
		g.Go(func() error {
			contents[i], readErrs[i] = ld.fsys.ReadFile(gctx, req.path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var errs error
	var next []request
	for i, req := range wave {
		if err := readErrs[i]; err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				ld.unreadable[req.path] = true
				errs = multierr.Append(errs, errors.Wrapf(err, "cannot read %s", req.path))
				continue
			}
			if req.from == nil {
				ld.ws.errs.Append(fmterr.Errorf(nil, nil, fmterr.FileNotFound, "File not exists: %s", req.path))
			}
			continue
		}
		file := ld.ws.AddFile(ld.fsys, ld.parse, req.path, contents[i])
		for _, dep := range ld.ws.Dependencies(file) {
			next = ld.enqueue(next, request{path: dep.Path, from: file})
		}
	}
	return next, errs
}

// reportMissing appends a diagnostic for every import of a file not in the workspace.
// Paths in unreadable are skipped: their error is returned instead.
func (ws *Workspace) reportMissing(unreadable map[string]bool) {
	for file := range ws.files.Values() {
		for _, dep := range ws.deps[file.ID()] {
			if dep.Target != nil || unreadable[dep.Path] {
				continue
			}
			ws.errs.Append(fmterr.Errorf(file, dep.Import, fmterr.FileNotFound, "File not exists: %s", dep.Import.Target.Value))
		}
	}
}
