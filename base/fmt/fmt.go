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

// Package fmt provides utility methods for building string representations of nn objects.
package fmt

import (
	"fmt"
	"slices"
	"strings"
)

// Width returns the number of digits required to print n.
func Width(n int) int {
	return len(fmt.Sprint(n))
}

// Number prefixes all lines in a string with their line number,
// starting at first, followed by a "| " separator.
// Numbers are right-aligned on the widest number.
func Number(x string, first int) string {
	lines := slices.Collect(strings.Lines(x))
	width := Width(first + len(lines) - 1)
	var s strings.Builder
	for i, line := range lines {
		s.WriteString(fmt.Sprintf("%*d | %s", width, first+i, line))
	}
	return s.String()
}

// Gutter returns the blank prefix matching the gutter written by Number
// for a text whose last line number is last.
func Gutter(last int) string {
	return strings.Repeat(" ", Width(last)) + " | "
}
