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

import "github.com/gx-org/nn/build/ast"

// Appender appends diagnostics to a set within the context of a source file.
type Appender struct {
	errors *Errors
	src    *ast.File
}

// Source returns the file of the appender.
func (app *Appender) Source() *ast.File {
	return app.src
}

// Errors returns the set in which diagnostics are recorded.
func (app *Appender) Errors() *Errors {
	return app.errors
}

// Appendf appends a diagnostic at the position of a node.
// It always returns false so that callers can write:
//
//	return app.Appendf(...)
func (app *Appender) Appendf(node ast.Node, kind Kind, format string, a ...any) bool {
	return app.errors.Append(Errorf(app.src, node, kind, format, a...))
}

// Fatalf appends a diagnostic at the position of a node and
// marks the set as non recoverable.
func (app *Appender) Fatalf(node ast.Node, kind Kind, format string, a ...any) bool {
	return app.errors.Fatal(Errorf(app.src, node, kind, format, a...))
}

// AppendInternalf appends an internal error at the position of a node.
func (app *Appender) AppendInternalf(node ast.Node, format string, a ...any) bool {
	return app.errors.Fatal(Internalf(app.src, node, format, a...))
}
