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

package scope_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/fmterr"
	"github.com/gx-org/nn/build/scope"
	"github.com/gx-org/nn/build/workspace"
)

func resolve(t *testing.T, files map[string]string, roots ...string) (*scope.WorkspaceScope, *fmterr.Errors) {
	t.Helper()
	ws, err := workspace.Load(context.Background(), workspace.NewMapFileSystem(files), nil, roots...)
	if err != nil {
		t.Fatal(err)
	}
	if !ws.Diagnostics().Empty() {
		t.Fatalf("unexpected loading errors:\n%v", ws.Diagnostics())
	}
	errs := &fmterr.Errors{}
	return scope.Resolve(ws, errs), errs
}

func decl(t *testing.T, ws *scope.WorkspaceScope, path, name string) *scope.DeclarationScope {
	t.Helper()
	fs, ok := ws.File(path)
	if !ok {
		t.Fatalf("file %s not found", path)
	}
	flow, ok := fs.Declared(name)
	if !ok {
		t.Fatalf("flow %s not declared in %s", name, path)
	}
	return flow.Decl
}

func TestResolveSizesAndValues(t *testing.T) {
	ws, errs := resolve(t, map[string]string{
		"main.nn": `
Linear[Out](x: Tensor[In]): Tensor[Out] = MatMul(x, Trainable[In, Out]('weight'))
MatMul(x: Tensor[N, In], w: Tensor[In, Out]): Tensor[N, Out]
Block(x: Tensor[N]) = y = Linear[N](x) |> z = Linear[N](y) |> y, z
`,
	}, "main.nn")
	if !errs.Empty() {
		t.Fatalf("unexpected errors:\n%v", errs)
	}
	linear := decl(t, ws, "main.nn", "Linear")
	var sizes []string
	for name, s := range linear.Sizes.Iter() {
		sizes = append(sizes, name)
		if s.Decl != linear {
			t.Errorf("size %s belongs to the wrong declaration", name)
		}
	}
	if diff := cmp.Diff([]string{"Out", "In"}, sizes); diff != "" {
		t.Errorf("unexpected sizes (-want +got):\n%s", diff)
	}
	if len(linear.SizeParams) != 1 || linear.SizeParams[0].Name != "Out" {
		t.Errorf("unexpected size parameters %v", linear.SizeParams)
	}
	// Sizes with the same name in two flows are different.
	matmul := decl(t, ws, "main.nn", "MatMul")
	linearIn, _ := linear.Sizes.Load("In")
	matmulIn, _ := matmul.Sizes.Load("In")
	if linearIn == matmulIn || linearIn.Key() == matmulIn.Key() {
		t.Errorf("size In is shared between Linear and MatMul")
	}
	if !linear.IsFree(linearIn) || linear.IsFree(matmulIn) {
		t.Errorf("unexpected free variables")
	}
	// Trainable resolves to the builtin.
	calls := ast.Calls(linear.Decl)
	trainable, ok := linear.CalleeOf(calls[1])
	if !ok || trainable.Builtin != scope.Trainable {
		t.Errorf("%s does not resolve to the Trainable builtin", calls[1].Callee.Name)
	}
	// Values are resolved in pipeline order.
	block := decl(t, ws, "main.nn", "Block")
	var values []string
	for _, v := range block.Values {
		values = append(values, v.Name)
	}
	if diff := cmp.Diff([]string{"x", "y", "z"}, values); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}
	tuple := block.Decl.Pipeline[2].(*ast.TupleExpr)
	for i, want := range []string{"y", "z"} {
		v, ok := block.ValueOf(tuple.Elts[i].(*ast.IdentExpr))
		if !ok || v.Name != want || v.IsParam() {
			t.Errorf("element %d: got %v, want assignment %s", i, v, want)
		}
	}
}

func TestResolveImports(t *testing.T) {
	ws, errs := resolve(t, map[string]string{
		"main.nn":   `import { Conv } from "./mid.nn"` + "\nNet(x: Tensor[N]) = Conv(x)\n",
		"mid.nn":    `import { Conv } from "./leaf.nn"` + "\n",
		"leaf.nn":   "Conv(x: Tensor[N]): Tensor[N]\n",
		"unused.nn": "Conv(x: Tensor[N])\n",
	}, "main.nn")
	if !errs.Empty() {
		t.Fatalf("unexpected errors:\n%v", errs)
	}
	main, _ := ws.File("main.nn")
	leaf, _ := ws.File("leaf.nn")
	got, _ := main.Flow("Conv")
	want, _ := leaf.Declared("Conv")
	if got != want {
		t.Errorf("Conv in main.nn is not the flow declared in leaf.nn")
	}
}

func TestResolveShadowBuiltin(t *testing.T) {
	ws, errs := resolve(t, map[string]string{
		"main.nn": "Trainable(x: Tensor[N]): Tensor[N]\nNet(x: Tensor[N]) = Trainable(x)\n",
	}, "main.nn")
	if !errs.Empty() {
		t.Fatalf("unexpected errors:\n%v", errs)
	}
	main, _ := ws.File("main.nn")
	flow, _ := main.Flow("Trainable")
	if flow.Builtin != scope.NotBuiltin {
		t.Errorf("user declaration does not shadow the builtin")
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		want      []string
		wantFatal bool
	}{
		{
			name:      "undeclared size in return type",
			files:     map[string]string{"main.nn": "F(x: Tensor[N]): Tensor[M]\n"},
			want:      []string{"main.nn:1:25: Using undeclared size name 'M'."},
			wantFatal: true,
		},
		{
			name:      "undeclared size in call",
			files:     map[string]string{"main.nn": "F(x: Tensor[N]) = G[K](x)\nG[K](x: Tensor[N])\n"},
			want:      []string{"main.nn:1:21: Using undeclared size name 'K'."},
			wantFatal: true,
		},
		{
			name:      "duplicate flow",
			files:     map[string]string{"main.nn": "F(x: Tensor[N])\nF(x: Tensor[N])\n"},
			want:      []string{"main.nn:2:1: Duplicate function name 'F'."},
			wantFatal: true,
		},
		{
			name:      "duplicate size parameter",
			files:     map[string]string{"main.nn": "F[N, N](x: Tensor[N])\nG(x: Tensor[3]) = F[3, 3](x)\n"},
			want:      []string{"main.nn:1:6: Duplicate size name 'N'."},
			wantFatal: true,
		},
		{
			name: "circular flows",
			files: map[string]string{"main.nn": `A(x: Tensor[N]) = B(x)
B(x: Tensor[N]) = C(x) |> A()
C(x: Tensor[N]) = C(x)
`},
			want: []string{
				"main.nn:3:19: Circular flow detected from 'C'.",
				"main.nn:2:27: Circular flow detected from 'A, B'.",
			},
			wantFatal: true,
		},
		{
			name: "missing import member",
			files: map[string]string{
				"main.nn": `import { Foo } from "./lib.nn"` + "\n",
				"lib.nn":  "Bar(x: Tensor[N])\n",
			},
			want: []string{"main.nn:1:10: File './lib.nn' has no member Foo."},
		},
		{
			name:      "unknown flow",
			files:     map[string]string{"main.nn": "F(x: Tensor[N]) = G(x)\n"},
			want:      []string{"main.nn:1:19: Unknown flow 'G'."},
			wantFatal: true,
		},
		{
			name:      "unknown value",
			files:     map[string]string{"main.nn": "F(x: Tensor[N]) = y |> y = G(x)\nG(x: Tensor[N])\n"},
			want:      []string{"main.nn:1:19: Unknown value 'y'."},
			wantFatal: true,
		},
		{
			name:      "invalid trainable",
			files:     map[string]string{"main.nn": "F(x: Tensor[N]) = Trainable[N](x)\nG(x: Tensor[N]) = Trainable[N]()\nH(x: Tensor[N]) = F('x')\n"},
			want: []string{
				"main.nn:1:32: The argument of Trainable must be a string literal.",
				"main.nn:2:19: Trainable requires exactly one name argument, got 0.",
				"main.nn:3:21: String literal 'x' is only allowed as the name of a Trainable.",
			},
			wantFatal: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, errs := resolve(t, test.files, "main.nn")
			var got []string
			for _, d := range errs.Diagnostics() {
				got = append(got, d.Error())
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected diagnostics (-want +got):\n%s", diff)
			}
			if errs.NonRecoverable() != test.wantFatal {
				t.Errorf("got non recoverable %v, want %v", errs.NonRecoverable(), test.wantFatal)
			}
		})
	}
}
