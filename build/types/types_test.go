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

package types_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/parser"
	"github.com/gx-org/nn/build/poly"
	"github.com/gx-org/nn/build/types"
)

// parseType parses the type of the first argument of F(x: <src>).
func parseType(t *testing.T, src string) types.Type {
	t.Helper()
	file, errs := parser.ParseFile(ast.NewArena(), "test.nn", []byte("F(x: "+src+")"))
	if len(errs) > 0 {
		t.Fatalf("cannot parse %q: %v", src, errs)
	}
	tp, err := types.FromNode(file.Decls[0].Args[0].Type, func(id *ast.IdentSize) (poly.Var, bool) {
		return poly.Symbol(id.Name.Name), true
	})
	if err != nil {
		t.Fatal(err)
	}
	return tp
}

func freeVars(names ...string) types.IsFree {
	return func(v poly.Var) bool {
		for _, name := range names {
			if v.Key() == name {
				return true
			}
		}
		return false
	}
}

func TestFromNode(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{src: "Tensor[3, N]", want: "Tensor[3, N]"},
		{src: "Tensor[N*2, N + N]", want: "Tensor[2*N, 2*N]"},
		{src: "Tensor[(H + 2*P - K)/S + 1]", want: "Tensor[H/S - K/S + 2*P/S + 1]"},
		{src: "Tensor[2^3, -N]", want: "Tensor[8, -N]"},
		{src: "Tensor", want: "Tensor[]"},
	}
	for _, test := range tests {
		if got := parseType(t, test.src).String(); got != test.want {
			t.Errorf("%s: got %s, want %s", test.src, got, test.want)
		}
	}
}

type binding struct {
	Var   string
	Value string
}

func bindingStrings(u *types.Unification) []binding {
	var r []binding
	for _, b := range u.Bindings {
		r = append(r, binding{Var: b.Var.String(), Value: b.Value.String()})
	}
	return r
}

func TestIsAssignable(t *testing.T) {
	tests := []struct {
		actual, formal  string
		free            []string
		wantBindings    []binding
		wantPassthrough string
		wantDeferred    int
		wantErr         bool
	}{
		{
			actual:       "Tensor[4]",
			formal:       "Tensor[N]",
			free:         []string{"N"},
			wantBindings: []binding{{Var: "N", Value: "4"}},
		},
		{
			actual:          "Tensor[8, 32, 32, 3]",
			formal:          "Tensor[H, W, C]",
			free:            []string{"H", "W", "C"},
			wantBindings:    []binding{{"H", "32"}, {"W", "32"}, {"C", "3"}},
			wantPassthrough: "Tensor[8]",
		},
		{
			actual: "Tensor[3]",
			formal: "Tensor[3]",
		},
		{
			actual:  "Tensor[4]",
			formal:  "Tensor[3]",
			wantErr: true,
		},
		{
			actual:       "Tensor[8]",
			formal:       "Tensor[2*N]",
			free:         []string{"N"},
			wantDeferred: 1,
		},
		{
			actual:  "Tensor[M]",
			formal:  "Tensor[N]",
			wantErr: true,
		},
		{
			actual:  "Tensor[4]",
			formal:  "Tensor[4, 4]",
			wantErr: true,
		},
	}
	for _, test := range tests {
		actual, formal := parseType(t, test.actual), parseType(t, test.formal)
		u, err := types.IsAssignable(actual, formal, freeVars(test.free...))
		if test.wantErr {
			if err == nil {
				t.Errorf("%s -> %s: expected an error", test.actual, test.formal)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s -> %s: %v", test.actual, test.formal, err)
			continue
		}
		if diff := cmp.Diff(test.wantBindings, bindingStrings(u)); diff != "" {
			t.Errorf("%s -> %s: unexpected bindings (-want +got):\n%s", test.actual, test.formal, diff)
		}
		if test.wantPassthrough != "" {
			if got := types.New(u.Passthrough...).String(); got != test.wantPassthrough {
				t.Errorf("%s -> %s: got passthrough %s, want %s", test.actual, test.formal, got, test.wantPassthrough)
			}
		} else if len(u.Passthrough) != 0 {
			t.Errorf("%s -> %s: unexpected passthrough %v", test.actual, test.formal, u.Passthrough)
		}
		if len(u.Deferred) != test.wantDeferred {
			t.Errorf("%s -> %s: got %d deferred constraints, want %d", test.actual, test.formal, len(u.Deferred), test.wantDeferred)
		}
	}
}

func TestIsAssignableExactIsReflexive(t *testing.T) {
	for _, src := range []string{"Tensor", "Tensor[1]", "Tensor[2, 3, 4]"} {
		tp := parseType(t, src)
		u, err := types.IsAssignableExact(tp, tp, freeVars())
		if err != nil {
			t.Errorf("%s: %v", src, err)
			continue
		}
		if len(u.Bindings) != 0 || len(u.Deferred) != 0 || len(u.Passthrough) != 0 {
			t.Errorf("%s: unexpected unification %v", src, u)
		}
	}
	if _, err := types.IsAssignableExact(types.Numbers(2, 3), types.Numbers(3), freeVars()); err == nil {
		t.Errorf("expected a rank error")
	}
}

func TestBindings(t *testing.T) {
	n := poly.Symbol("N")
	b := types.NewBindings()
	if err := b.Bind(n, poly.Constant(4)); err != nil {
		t.Fatal(err)
	}
	if err := b.Bind(n, poly.Add(poly.Constant(2), poly.Constant(2))); err != nil {
		t.Errorf("binding the same value twice: %v", err)
	}
	if err := b.Bind(n, poly.Constant(5)); err == nil {
		t.Errorf("expected a conflict error")
	}
	u, err := types.IsAssignable(types.Numbers(8), parseType(t, "Tensor[2*N]"), freeVars("N"))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Check(u.Deferred); err != nil {
		t.Errorf("8 == 2*4: %v", err)
	}
	u, err = types.IsAssignable(types.Numbers(9), parseType(t, "Tensor[2*N]"), freeVars("N"))
	if err != nil {
		t.Fatal(err)
	}
	err = b.Check(u.Deferred)
	var mismatch *types.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("got error %v, want a mismatch error", err)
	}
	if got, want := mismatch.Error(), "dimension 0: 9 is not assignable to 8"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTypeAssign(t *testing.T) {
	tp := parseType(t, "Tensor[N*2, M]")
	b := types.NewBindings()
	if err := b.Bind(poly.Symbol("N"), poly.Constant(4)); err != nil {
		t.Fatal(err)
	}
	got := tp.Assign(b.Lookup)
	if got.String() != "Tensor[8, M]" {
		t.Errorf("got %s, want Tensor[8, M]", got)
	}
	if got.IsConcrete() {
		t.Errorf("%s is concrete", got)
	}
	var vars []string
	for _, v := range got.Vars() {
		vars = append(vars, v.String())
	}
	if diff := cmp.Diff([]string{"M"}, vars); diff != "" {
		t.Errorf("unexpected variables (-want +got):\n%s", diff)
	}
	if !types.IsSame(got.Concat(types.Numbers(2).Dims), parseType(t, "Tensor[2, 8, M]")) {
		t.Errorf("concat mismatch")
	}
}
