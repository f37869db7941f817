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
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	nnfmt "github.com/gx-org/nn/base/fmt"
)

// Printer renders diagnostics for a terminal.
type Printer struct {
	// Color enables ANSI colors in the output.
	Color bool
	// Context is the number of source lines printed before the line of a diagnostic.
	Context int
}

func (p Printer) style(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if p.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Fprint writes all diagnostics of a set into w.
func (p Printer) Fprint(w io.Writer, errs *Errors) error {
	for i, d := range errs.Diagnostics() {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, p.Sprint(d)); err != nil {
			return err
		}
	}
	return nil
}

// Sprint renders a diagnostic with the source line it points to.
func (p Printer) Sprint(d *Diagnostic) string {
	var b strings.Builder
	head := p.style(color.FgRed, color.Bold)
	if d.Kind == ReturnTypeMismatch || d.Kind == UnresolvableShape {
		head = p.style(color.FgYellow, color.Bold)
	}
	fmt.Fprintf(&b, "%s %s\n", head.Sprintf("error[%s]:", d.Kind), p.style(color.Bold).Sprint(d.Message))
	if d.Source == nil {
		return b.String()
	}
	pos := d.Source.Position(d.Position.Pos)
	dim := p.style(color.FgBlue)
	fmt.Fprintf(&b, "%s %s\n", dim.Sprint("-->"), pos.String())
	if pos.Line < 1 || pos.Line > d.Source.LineCount() {
		return b.String()
	}
	first := max(1, pos.Line-p.Context)
	var src strings.Builder
	for line := first; line <= pos.Line; line++ {
		src.WriteString(d.Source.Line(line))
		src.WriteString("\n")
	}
	b.WriteString(dim.Sprint(nnfmt.Number(src.String(), first)))
	text := d.Source.Line(pos.Line)
	col := min(max(pos.Column-1, 0), len(text))
	end := pos.Column - 1 + max(d.Position.Len(), 1)
	end = min(max(end, col+1), len(text)+1)
	padding := runewidth.StringWidth(expandTabs(text[:col]))
	carets := max(1, runewidth.StringWidth(safeSlice(text, col, end)))
	fmt.Fprintf(&b, "%s%s%s\n",
		dim.Sprint(nnfmt.Gutter(pos.Line)),
		strings.Repeat(" ", padding),
		head.Sprint(strings.Repeat("^", carets)),
	)
	return b.String()
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", " ")
}

func safeSlice(s string, start, end int) string {
	end = min(end, len(s))
	if start >= end {
		return ""
	}
	return s[start:end]
}
