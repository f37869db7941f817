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

package module_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/gx-org/nn/build/module"
	"github.com/gx-org/nn/build/workspace"
)

const projectFile = `
language = "v0.1.0"
sources = ["model.nn", "/abs/other.nn"]

[lower]
target = "model.nn"
flow = "UNet"
output = "unet.nngraph"

[lower.sizes]
H = 256
W = 128
`

func TestNew(t *testing.T) {
	ctx := context.Background()
	fsys := workspace.NewMapFileSystem(map[string]string{
		"proj/nn.toml":   projectFile,
		"proj/model.nn":  "Id(x: Tensor[N]) = x\n",
		"proj/a/b/x.txt": "",
	})
	mod, err := module.New(ctx, fsys, "proj/a/b")
	if err != nil {
		t.Fatal(err)
	}
	if mod.Root() != "proj" {
		t.Errorf("got root %q but want %q", mod.Root(), "proj")
	}
	want := module.Config{
		Language: "v0.1.0",
		Sources:  []string{"model.nn", "/abs/other.nn"},
		Lower: module.Lower{
			Target: "model.nn",
			Flow:   "UNet",
			Output: "unet.nngraph",
			Sizes:  map[string]int64{"H": 256, "W": 128},
		},
	}
	if diff := cmp.Diff(want, mod.Config); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"proj/model.nn", "/abs/other.nn"}, mod.Sources()); diff != "" {
		t.Errorf("unexpected sources (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	fsys := workspace.NewMapFileSystem(map[string]string{
		"nn.toml":  `sources = ["model.nn"]`,
		"model.nn": "Id(x: Tensor[N]) = x\n",
	})
	mod, err := module.New(ctx, fsys, ".")
	if err != nil {
		t.Fatal(err)
	}
	if mod.Config.Language != module.LanguageVersion {
		t.Errorf("got default language %q but want %q", mod.Config.Language, module.LanguageVersion)
	}
	ws, err := mod.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ws.File("model.nn"); !ok {
		t.Errorf("model.nn not loaded")
	}
	if !ws.Diagnostics().Empty() {
		t.Errorf("unexpected errors:\n%v", ws.Diagnostics())
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		toml string
		err  string
	}{
		{
			toml: `language = "0.1"`,
			err:  `language version "0.1" is not a valid semantic version`,
		},
		{
			toml: `language = "v9.0.0"`,
			err:  "language version v9.0.0 is newer than the supported version",
		},
		{
			toml: `langage = "v0.1.0"`,
			err:  "unknown key(s) langage",
		},
		{
			toml: "[lower.sizes]\nH = 0\n",
			err:  "size H=0 is not positive",
		},
		{
			toml: `sources = [`,
			err:  "cannot parse nn.toml",
		},
	}
	ctx := context.Background()
	for i, test := range tests {
		fsys := workspace.NewMapFileSystem(map[string]string{"nn.toml": test.toml})
		_, err := module.New(ctx, fsys, ".")
		if err == nil {
			t.Errorf("test %d: expected an error but got none", i)
			continue
		}
		if !strings.Contains(err.Error(), test.err) {
			t.Errorf("test %d: error %q does not contain %q", i, err.Error(), test.err)
		}
	}
}

func TestNotFound(t *testing.T) {
	fsys := workspace.NewMapFileSystem(map[string]string{"a/model.nn": ""})
	_, err := module.New(context.Background(), fsys, "a/b")
	if !errors.Is(err, module.ErrNotFound) {
		t.Errorf("got error %v but want %v", err, module.ErrNotFound)
	}
}
