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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/gx-org/nn/build/lower"
)

const model = `
Double(x: Tensor[N]): Tensor[2*N]
MatMul(x: Tensor[In], w: Tensor[In, Out]): Tensor[Out]
Linear[Out](x: Tensor[In]): Tensor[Out] = MatMul(x, Trainable[In, Out]('weight'))
Main(v: Tensor[4]) = |> Double() |> Linear[3]()
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--color=off"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCheck(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"model.nn": model,
		"broken.nn": `
Head(x: Tensor[H, W, 3]): Tensor[H, W]
Main(x: Tensor[32, 32, 4]) = Head(x)
`,
	})
	out, err := run(t, "check", filepath.Join(dir, "model.nn"))
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if want := "ok 1 file(s) checked\n"; out != want {
		t.Errorf("got output %q but want %q", out, want)
	}
	out, err = run(t, "check", filepath.Join(dir, "broken.nn"))
	if !errors.Is(err, errDiagnostics) {
		t.Errorf("got error %v but want %v", err, errDiagnostics)
	}
	for _, want := range []string{"error[ShapeMismatch]:", "broken.nn:3:", "^"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestGraph(t *testing.T) {
	dir := writeFiles(t, map[string]string{"model.nn": model})
	out, err := run(t, "graph", filepath.Join(dir, "model.nn"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"  flow Main\n", "call Linear[3](", "-> v", ": Tensor[3] (passed)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestParams(t *testing.T) {
	dir := writeFiles(t, map[string]string{"model.nn": model})
	out, err := run(t, "params", "--flow", "Linear", "--size", "In=8,Out=3", filepath.Join(dir, "model.nn"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "Linear: 24\n"; out != want {
		t.Errorf("got output %q but want %q", out, want)
	}
	out, err = run(t, "params", "--flow", "Main", filepath.Join(dir, "model.nn"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "Main: 24\n"; out != want {
		t.Errorf("got output %q but want %q", out, want)
	}
}

func TestLower(t *testing.T) {
	dir := writeFiles(t, map[string]string{"model.nn": model})
	output := filepath.Join(dir, "main.nngraph")
	out, err := run(t, "lower", "--flow", "Main", "-o", output, filepath.Join(dir, "model.nn"))
	if err != nil {
		t.Fatal(err)
	}
	if want := output + " written: 2 node(s), 1 initializer(s)\n"; out != want {
		t.Errorf("got output %q but want %q", out, want)
	}
	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	g, err := lower.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "Main" || len(g.Outputs) != 1 {
		t.Errorf("unexpected graph:\n%s", g)
	}
}

func TestProject(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"model.nn": model,
		"nn.toml": `
language = "v0.1.0"
sources = ["model.nn"]

[lower]
target = "model.nn"
flow = "Linear"

[lower.sizes]
In = 2
Out = 5
`,
	})
	out, err := run(t, "--dir", dir, "check")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	out, err = run(t, "--dir", dir, "lower", "--text")
	if err != nil {
		t.Fatal(err)
	}
	want := `graph Linear
  input x: [2]
  init Linear/weight: [2, 5]
  node Linear/MatMul = MatMul(x, Linear/weight) {In=2, Out=5}: [5]
  output Linear/MatMul: [5]
`
	if out != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
	out, err = run(t, "--dir", dir, "params", "--size", "In=3,Out=5")
	if err != nil {
		t.Fatal(err)
	}
	if want := "Linear: 15\n"; out != want {
		t.Errorf("got output %q but want %q", out, want)
	}
}

func TestFlagErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{"model.nn": model})
	if _, err := run(t, "params", filepath.Join(dir, "model.nn")); err == nil || !strings.Contains(err.Error(), "no flow given") {
		t.Errorf("got error %v but want a missing flow error", err)
	}
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--color=always", "check", filepath.Join(dir, "model.nn")})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "invalid --color value") {
		t.Errorf("got error %v but want an invalid color error", err)
	}
}
