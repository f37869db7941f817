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

package ast

import (
	"go/token"
	"strings"
	"sync"
)

// File is a parsed source file.
type File struct {
	base
	Path    string
	Content []byte
	Imports []*Import
	Decls   []*Declaration

	tok *token.File
}

// Position converts a byte offset of the file into a line and column position.
func (f *File) Position(offset int) token.Position {
	if f.tok == nil {
		return token.Position{Filename: f.Path, Offset: offset}
	}
	offset = max(0, min(offset, f.tok.Size()))
	return f.tok.PositionFor(f.tok.Pos(offset), false)
}

// Line returns the content of a line (starting at 1) without its line terminator.
func (f *File) Line(line int) string {
	if f.tok == nil || line < 1 || line > f.tok.LineCount() {
		return ""
	}
	start := f.tok.Offset(f.tok.LineStart(line))
	end := len(f.Content)
	if line < f.tok.LineCount() {
		end = f.tok.Offset(f.tok.LineStart(line+1)) - 1
	}
	text := strings.TrimSuffix(string(f.Content[start:end]), "\n")
	return strings.TrimSuffix(text, "\r")
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() int {
	if f.tok == nil {
		return 0
	}
	return f.tok.LineCount()
}

// Arena registers the nodes of a workspace.
// It is safe to create nodes from multiple goroutines.
type Arena struct {
	mu    sync.Mutex
	fset  *token.FileSet
	nodes []Node
}

// NewArena returns a new empty arena.
func NewArena() *Arena {
	return &Arena{fset: token.NewFileSet()}
}

// Add registers a node in the arena and returns it.
func Add[T Node](a *Arena, span Position, n T) T {
	a.mu.Lock()
	defer a.mu.Unlock()
	n.init(NodeID(len(a.nodes)), span)
	a.nodes = append(a.nodes, n)
	return n
}

// NewFile registers a new file node.
func (a *Arena) NewFile(path string, content []byte) *File {
	f := Add(a, Position{End: len(content)}, &File{
		Path:    path,
		Content: content,
	})
	a.mu.Lock()
	defer a.mu.Unlock()
	f.tok = a.fset.AddFile(path, -1, len(content))
	f.tok.SetLinesForContent(content)
	return f
}

// Node returns a node given its identifier.
func (a *Arena) Node(id NodeID) (Node, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id < 0 || int(id) >= len(a.nodes) {
		return nil, false
	}
	return a.nodes[id], true
}

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.nodes)
}

// FileSet returns the set of files registered in the arena.
func (a *Arena) FileSet() *token.FileSet {
	return a.fset
}
