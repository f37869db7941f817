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

// Package testcheck runs the checker on sources and compares
// the outcome with an expected result.
package testcheck

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	nnfmt "github.com/gx-org/nn/base/fmt"
	"github.com/gx-org/nn/build/checker"
	"github.com/gx-org/nn/build/workspace"
)

type (
	// Test checks sources and compares the result to an expectation.
	Test interface {
		// Source returns the main source of the test.
		Source() string
		// Run the test.
		Run(ctx context.Context) error
	}

	// Decl checks declarations written in a single file.
	Decl struct {
		// Src of the declarations.
		Src string

		// Want maps flow names to the type returned by their body.
		Want map[string]string

		// Err is the substring expected in the diagnostics.
		// If empty, the check must not report any diagnostic.
		Err string
	}

	// Files checks a workspace of several files.
	Files struct {
		// Files maps paths to source code.
		Files map[string]string
		// Root is the path of the file from which the workspace is loaded.
		Root string

		// Want maps flow names declared in Root to the type returned by their body.
		Want map[string]string

		// Err is the substring expected in the diagnostics.
		Err string
	}
)

// MainPath is the path of the file built from Decl sources.
const MainPath = "main.nn"

var _ Test = Decl{}

// Check loads files into a workspace and checks it.
func Check(ctx context.Context, files map[string]string, roots ...string) (*checker.Context, error) {
	ws, err := workspace.Load(ctx, workspace.NewMapFileSystem(files), nil, roots...)
	if err != nil {
		return nil, err
	}
	return checker.Check(ws), nil
}

// CheckError returns an error if err does not match the expected substring.
func CheckError(want string, err error) error {
	switch {
	case want == "" && err != nil:
		return errors.Errorf("unexpected error:\n%v", err)
	case want != "" && err == nil:
		return errors.Errorf("expected an error containing %q but got none", want)
	case err != nil && !strings.Contains(err.Error(), want):
		return errors.Errorf("error:\n%v\ndoes not contain %q", err, want)
	}
	return nil
}

// CheckReturns compares the types returned by the bodies of flows
// declared in a file with the expected ones.
func CheckReturns(c *checker.Context, path string, want map[string]string) error {
	names := maps.Keys(want)
	slices.Sort(names)
	for _, name := range names {
		flow, err := c.FindFlow(path, name)
		if err != nil {
			return err
		}
		ret := c.Return(flow.Decl)
		if ret == nil {
			return errors.Errorf("flow %s does not return a value", name)
		}
		tp, ok := ret.Type()
		if !ok {
			return errors.Errorf("flow %s: the type of %s has not been inferred", name, ret)
		}
		if got := tp.String(); got != want[name] {
			return errors.Errorf("flow %s returns %s but want %s", name, got, want[name])
		}
	}
	return nil
}

// Source returns the source of the declarations.
func (tt Decl) Source() string {
	return tt.Src
}

// Run checks the declarations.
func (tt Decl) Run(ctx context.Context) error {
	return Files{
		Files: map[string]string{MainPath: tt.Src},
		Root:  MainPath,
		Want:  tt.Want,
		Err:   tt.Err,
	}.Run(ctx)
}

// Source returns the source of the root file.
func (tt Files) Source() string {
	return tt.Files[tt.Root]
}

// Run loads and checks the files.
func (tt Files) Run(ctx context.Context) error {
	c, err := Check(ctx, tt.Files, tt.Root)
	if err != nil {
		return err
	}
	if err := CheckError(tt.Err, c.Diagnostics().ToError()); err != nil {
		return err
	}
	if tt.Err != "" {
		return nil
	}
	return CheckReturns(c, tt.Root, tt.Want)
}

// Run all the tests.
func Run(t *testing.T, tests ...Test) {
	t.Helper()
	ctx := context.Background()
	for i, test := range tests {
		if err := test.Run(ctx); err != nil {
			t.Errorf("test %d: %v\nSource code:\n%s", i, err, nnfmt.Number(test.Source(), 1))
		}
	}
}
