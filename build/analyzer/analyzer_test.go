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

package analyzer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/gx-org/nn/build/analyzer"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/checker"
	"github.com/gx-org/nn/build/checker/testcheck"
	"github.com/gx-org/nn/build/poly"
	"github.com/gx-org/nn/build/workspace"
)

func check(t *testing.T, src string) *checker.Context {
	t.Helper()
	c, err := testcheck.Check(context.Background(), map[string]string{testcheck.MainPath: src}, testcheck.MainPath)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Diagnostics().Empty() {
		t.Fatalf("unexpected errors:\n%v", c.Diagnostics())
	}
	return c
}

const mlp = `
MatMul(x: Tensor[In], w: Tensor[In, Out]): Tensor[Out]
Linear[Out](x: Tensor[In]): Tensor[Out] = MatMul(x, Trainable[In, Out]('weight'))
MLP[Hidden](x: Tensor[B, In]) = |> Linear[Hidden]() |> Linear[10]()
`

func TestAnalyzeSymbolic(t *testing.T) {
	c := check(t, mlp)
	target := analyzer.Target{Source: testcheck.MainPath, Flow: "Linear"}
	got, err := analyzer.Analyze(c, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := analyzer.Decl(c, target)
	if err != nil {
		t.Fatal(err)
	}
	in, _ := ds.Sizes.Load("In")
	out, _ := ds.Sizes.Load("Out")
	want := poly.Mul(poly.FromVar(in), poly.FromVar(out))
	if !poly.IsSame(got, want) {
		t.Errorf("got %s parameters but want %s", got, want)
	}
}

func TestAnalyzeNumbers(t *testing.T) {
	tests := []struct {
		target analyzer.Target
		sizes  map[string]int64
		want   int64
	}{
		{
			target: analyzer.Target{Source: testcheck.MainPath, Flow: "MLP"},
			sizes:  map[string]int64{"In": 784, "Hidden": 128},
			want:   784*128 + 128*10,
		},
		{
			target: analyzer.Target{Source: testcheck.MainPath, Flow: "Linear"},
			sizes:  map[string]int64{"In": 3, "Out": 4},
			want:   12,
		},
		{
			target: analyzer.Target{Source: testcheck.MainPath, Flow: "MatMul"},
			want:   0,
		},
	}
	c := check(t, mlp)
	for i, test := range tests {
		got, err := analyzer.Analyze(c, test.target, test.sizes)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		n, ok := got.Int()
		if !ok || n != test.want {
			t.Errorf("test %d: got %s parameters but want %d", i, got, test.want)
		}
	}
}

func TestAnalyzeUNet(t *testing.T) {
	const path = "../checker/testdata/unet.nn"
	ws, err := workspace.Load(context.Background(), workspace.OSFileSystem{}, nil, path)
	if err != nil {
		t.Fatal(err)
	}
	c := checker.Check(ws)
	if !c.Diagnostics().Empty() {
		t.Fatalf("unexpected errors:\n%v", c.Diagnostics())
	}
	const want = 1698624
	for _, test := range []struct {
		flow  string
		sizes map[string]int64
	}{
		{flow: "Segment"},
		{flow: "UNet", sizes: map[string]int64{"Classes": 2}},
	} {
		got, err := analyzer.Analyze(c, analyzer.Target{Source: path, Flow: test.flow}, test.sizes)
		if err != nil {
			t.Fatal(err)
		}
		if n, ok := got.Int(); !ok || n != want {
			t.Errorf("%s: got %s parameters but want %d", test.flow, got, want)
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	c := check(t, mlp)
	if _, err := analyzer.Analyze(c, analyzer.Target{Source: testcheck.MainPath, Flow: "CNN"}, nil); !errors.Is(err, checker.ErrFlowNotFound) {
		t.Errorf("got error %v but want %v", err, checker.ErrFlowNotFound)
	}
	if _, err := analyzer.Analyze(c, analyzer.Target{Source: "lib.nn", Flow: "MLP"}, nil); !errors.Is(err, checker.ErrFileNotInWorkspace) {
		t.Errorf("got error %v but want %v", err, checker.ErrFileNotInWorkspace)
	}
	_, err := analyzer.Analyze(c, analyzer.Target{Source: testcheck.MainPath, Flow: "MLP"}, map[string]int64{"Z": 1})
	if err == nil || !strings.Contains(err.Error(), "flow MLP has no size Z") {
		t.Errorf("got error %v but want an unknown size error", err)
	}
}

const hoverSrc = `Double(x: Tensor[N]): Tensor[2*N]
Main(v: Tensor[4]) = y = Double(v) |> y
`

func TestHover(t *testing.T) {
	c := check(t, hoverSrc)
	file, ok := c.Workspace.File(testcheck.MainPath)
	if !ok {
		t.Fatalf("file %s not in workspace", testcheck.MainPath)
	}
	tests := []struct {
		offset int
		want   string
	}{
		{offset: strings.Index(hoverSrc, "x:"), want: "x: Tensor[N]"},
		{offset: strings.Index(hoverSrc, "N]"), want: "size N of Double"},
		{offset: strings.Index(hoverSrc, "Double(v)") + 1, want: "Double: Tensor[8]"},
		{offset: strings.Index(hoverSrc, "y ="), want: "y: Tensor[8]"},
		{offset: strings.LastIndex(hoverSrc, "y"), want: "y: Tensor[8]"},
		{offset: strings.Index(hoverSrc, "ain"), want: "flow Main(v: Tensor[4])"},
		{offset: strings.Index(hoverSrc, "2*N"), want: "flow Double(x: Tensor[N]): Tensor[2 * N]"},
	}
	for i, test := range tests {
		got, ok := analyzer.Hover(c, file, test.offset)
		if !ok {
			t.Errorf("test %d: no hover at offset %d", i, test.offset)
			continue
		}
		if got != test.want {
			t.Errorf("test %d: got %q but want %q", i, got, test.want)
		}
	}
	if got, ok := analyzer.Hover(c, file, len(hoverSrc)+10); ok {
		t.Errorf("unexpected hover %q out of the file", got)
	}
}

func TestNodeAt(t *testing.T) {
	c := check(t, hoverSrc)
	file, _ := c.Workspace.File(testcheck.MainPath)
	node, ok := analyzer.NodeAt(file, strings.Index(hoverSrc, "4]"))
	if !ok {
		t.Fatal("no node found")
	}
	if _, ok := node.(*ast.NumberSize); !ok {
		t.Errorf("got node %T but want %T", node, &ast.NumberSize{})
	}
}
