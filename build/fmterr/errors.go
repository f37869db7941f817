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
	"iter"
	"strings"

	"github.com/gx-org/nn/build/ast"
)

// Errors is the ordered set of diagnostics of a check.
type Errors struct {
	diags          []*Diagnostic
	nonRecoverable bool
}

// NewAppender returns an appender recording diagnostics in a source file.
func (errs *Errors) NewAppender(src *ast.File) *Appender {
	return &Appender{errors: errs, src: src}
}

// Append a diagnostic to the list of diagnostics.
func (errs *Errors) Append(d *Diagnostic) bool {
	errs.diags = append(errs.diags, d)
	return false
}

// Fatal appends a diagnostic and marks the set as non recoverable.
func (errs *Errors) Fatal(d *Diagnostic) bool {
	errs.nonRecoverable = true
	return errs.Append(d)
}

// NonRecoverable returns true if a fatal diagnostic has been appended.
// The checking of the workspace cannot go on when it is the case.
func (errs *Errors) NonRecoverable() bool {
	return errs.nonRecoverable
}

// Empty returns true if no diagnostic has been appended.
func (errs *Errors) Empty() bool {
	return errs == nil || len(errs.diags) == 0
}

// Len returns the number of diagnostics.
func (errs *Errors) Len() int {
	if errs == nil {
		return 0
	}
	return len(errs.diags)
}

// Diagnostics returns all the diagnostics in the order in which they were appended.
func (errs *Errors) Diagnostics() []*Diagnostic {
	if errs == nil {
		return nil
	}
	return append([]*Diagnostic{}, errs.diags...)
}

// Iter iterates over the diagnostics for which keep returns true.
func (errs *Errors) Iter(keep func(*Diagnostic) bool) iter.Seq[*Diagnostic] {
	return func(yield func(*Diagnostic) bool) {
		if errs == nil {
			return
		}
		for _, d := range errs.diags {
			if keep != nil && !keep(d) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// ForFile returns the diagnostics attached to a source file.
func (errs *Errors) ForFile(src *ast.File) []*Diagnostic {
	var r []*Diagnostic
	for d := range errs.Iter(func(d *Diagnostic) bool { return d.Source == src }) {
		r = append(r, d)
	}
	return r
}

// Kinds returns the kinds of all diagnostics in order.
func (errs *Errors) Kinds() []Kind {
	var r []Kind
	for d := range errs.Iter(nil) {
		r = append(r, d.Kind)
	}
	return r
}

// Error returns the current set of errors as a string.
func (errs *Errors) Error() string {
	ss := make([]string, len(errs.diags))
	for i, d := range errs.diags {
		ss[i] = d.Error()
	}
	return strings.Join(ss, "\n")
}

// ToError returns the errors as an error interface.
func (errs *Errors) ToError() error {
	if errs.Empty() {
		return nil
	}
	return errs
}

// Format writes the error into the state of the formatter.
func (errs *Errors) Format(s fmt.State, verb rune) {
	flag := ""
	if s.Flag('+') {
		flag = "+"
	}
	for _, d := range errs.diags {
		format := fmt.Sprintf("%%%s%s\n", flag, string(verb))
		fmt.Fprintf(s, format, d)
	}
}

// String representation of the error.
func (errs *Errors) String() string {
	return errs.Error()
}
