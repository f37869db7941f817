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

package fmterr

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
	"github.com/gx-org/nn/build/ast"
)

// Diagnostic is an error attached to a position in a source file.
type Diagnostic struct {
	Kind Kind
	// Source is the file in which the error has been found.
	Source   *ast.File
	Message  string
	Position ast.Position

	cause error
}

var _ error = (*Diagnostic)(nil)

// Errorf returns a new diagnostic at the position of a node.
func Errorf(src *ast.File, node ast.Node, kind Kind, format string, a ...any) *Diagnostic {
	var pos ast.Position
	if node != nil {
		pos = node.Span()
	}
	return &Diagnostic{
		Kind:     kind,
		Source:   src,
		Message:  fmt.Sprintf(format, a...),
		Position: pos,
	}
}

// Internalf returns a diagnostic reporting a bug in the checker.
// The diagnostic records the stack trace of the caller.
func Internalf(src *ast.File, node ast.Node, format string, a ...any) *Diagnostic {
	d := Errorf(src, node, Internal, format, a...)
	d.cause = errors.New(d.Message)
	return d
}

// Path returns the path of the source file or an empty string.
func (d *Diagnostic) Path() string {
	if d.Source == nil {
		return ""
	}
	return d.Source.Path
}

// Location returns the path, line and column of the diagnostic.
func (d *Diagnostic) Location() string {
	if d.Source == nil {
		return "<unknown>"
	}
	return d.Source.Position(d.Position.Pos).String()
}

// Error returns a string description of the error.
func (d *Diagnostic) Error() (s string) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s = fmt.Sprintf("recovered from panic when building error message: %v:\n%s", r, string(debug.Stack()))
	}()
	if d.Kind == Internal {
		return d.Location() + ": internal error. This is a bug in the checker. Please report it. Error: " + d.Message
	}
	return d.Location() + ": " + d.Message
}

// Unwrap returns the cause of internal errors.
func (d *Diagnostic) Unwrap() error {
	return d.cause
}

// Format writes the error into the state of the formatter.
func (d *Diagnostic) Format(s fmt.State, verb rune) {
	format(d, s, verb)
}
