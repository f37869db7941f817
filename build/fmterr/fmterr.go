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

// Package fmterr collects the diagnostics of a workspace check and
// formats them given positions in source files.
package fmterr

import "fmt"

// Kind classifies a diagnostic.
type Kind int

// Diagnostic kinds.
const (
	Internal Kind = iota
	SyntaxError
	FileNotFound
	UndeclaredSize
	UndeclaredFlow
	UndeclaredValue
	InvalidTrainable
	DuplicateFlowName
	CircularFlow
	MissingImportMember
	ShapeMismatch
	ArgumentMismatch
	UnresolvableShape
	ReturnTypeMismatch
	DuplicateSizeName
)

var kindStrings = [...]string{
	Internal:            "Internal",
	SyntaxError:         "SyntaxError",
	FileNotFound:        "FileNotFound",
	UndeclaredSize:      "UndeclaredSize",
	UndeclaredFlow:      "UndeclaredFlow",
	UndeclaredValue:     "UndeclaredValue",
	InvalidTrainable:    "InvalidTrainable",
	DuplicateFlowName:   "DuplicateFlowName",
	CircularFlow:        "CircularFlow",
	MissingImportMember: "MissingImportMember",
	ShapeMismatch:       "ShapeMismatch",
	ArgumentMismatch:    "ArgumentMismatch",
	UnresolvableShape:   "UnresolvableShape",
	ReturnTypeMismatch:  "ReturnTypeMismatch",
	DuplicateSizeName:   "DuplicateSizeName",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Resolution returns true if the kind is reported while resolving names.
func (k Kind) Resolution() bool {
	switch k {
	case UndeclaredSize, UndeclaredFlow, UndeclaredValue, InvalidTrainable,
		DuplicateFlowName, DuplicateSizeName, CircularFlow, MissingImportMember:
		return true
	}
	return false
}
