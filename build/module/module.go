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

// Package module reads the nn.toml file of a project.
//
// A project is the directory containing nn.toml, found by walking up
// from a directory. The file lists the entry source files of the
// project and the default target for lowering:
//
//	language = "v0.1.0"
//	sources  = ["model.nn"]
//
//	[lower]
//	target = "model.nn"
//	flow   = "UNet"
//	output = "unet.nngraph"
//
//	[lower.sizes]
//	H = 256
package module

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
	"github.com/gx-org/nn/build/workspace"
)

const (
	// FileName is the name of the project file.
	FileName = "nn.toml"

	// LanguageVersion is the latest version of the language supported by the compiler.
	LanguageVersion = "v0.1.0"
)

type (
	// Lower is the default target of the lowering.
	Lower struct {
		// Target is the source file declaring the flow, relative to the project root.
		Target string `toml:"target"`
		// Flow is the name of the flow to lower.
		Flow string `toml:"flow"`
		// Output is the file to which the graph is written.
		Output string `toml:"output"`
		// Sizes are the values of the size parameters of the flow.
		Sizes map[string]int64 `toml:"sizes"`
	}

	// Config is the content of a project file.
	Config struct {
		Language string   `toml:"language"`
		Sources  []string `toml:"sources"`
		Lower    Lower    `toml:"lower"`
	}

	// Module is a project on a file system.
	Module struct {
		Config Config

		root string
		fsys workspace.FileSystem
	}
)

// ErrNotFound is returned when no project file can be found.
var ErrNotFound = errors.New("project file not found")

func findModuleRoot(ctx context.Context, fsys workspace.FileSystem, dir string) (string, error) {
	for {
		ok, err := fsys.Exists(ctx, fsys.Join(dir, FileName))
		if err != nil {
			return "", err
		}
		if ok {
			return dir, nil
		}
		parent := fsys.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Parse a project file.
func Parse(path string, data []byte) (Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return Config{}, errors.Errorf("%s: unknown key(s) %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid project file %s", path)
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Language == "" {
		cfg.Language = LanguageVersion
	}
	if !semver.IsValid(cfg.Language) {
		return errors.Errorf("language version %q is not a valid semantic version", cfg.Language)
	}
	if semver.Compare(cfg.Language, LanguageVersion) > 0 {
		return errors.Errorf("language version %s is newer than the supported version %s", cfg.Language, LanguageVersion)
	}
	names := make([]string, 0, len(cfg.Lower.Sizes))
	for name := range cfg.Lower.Sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if cfg.Lower.Sizes[name] <= 0 {
			return errors.Errorf("size %s=%d is not positive", name, cfg.Lower.Sizes[name])
		}
	}
	return nil
}

// New returns the project containing a directory.
func New(ctx context.Context, fsys workspace.FileSystem, dir string) (*Module, error) {
	root, err := findModuleRoot(ctx, fsys, dir)
	if err != nil {
		return nil, err
	}
	if root == "" {
		return nil, errors.Wrapf(ErrNotFound, "no %s in %q or its parents", FileName, dir)
	}
	path := fsys.Join(root, FileName)
	data, err := fsys.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	return &Module{Config: cfg, root: root, fsys: fsys}, nil
}

var (
	current     *Module
	currentErr  error
	currentOnce sync.Once
)

// Current returns the project of the current working directory.
func Current(ctx context.Context) (*Module, error) {
	currentOnce.Do(func() {
		var wd string
		wd, currentErr = os.Getwd()
		if currentErr != nil {
			return
		}
		current, currentErr = New(ctx, workspace.OSFileSystem{}, wd)
	})
	return current, currentErr
}

// Root returns the directory of the project file.
func (mod *Module) Root() string {
	return mod.root
}

// FS returns the file system of the project.
func (mod *Module) FS() workspace.FileSystem {
	return mod.fsys
}

// Path converts a path relative to the project root to a path on the file system.
func (mod *Module) Path(rel string) string {
	return mod.fsys.Resolve(mod.fsys.Join(mod.root, FileName), rel)
}

// Sources returns the paths of the entry files of the project.
func (mod *Module) Sources() []string {
	paths := make([]string, len(mod.Config.Sources))
	for i, src := range mod.Config.Sources {
		paths[i] = mod.Path(src)
	}
	return paths
}

// Load the workspace of the project from its entry files.
func (mod *Module) Load(ctx context.Context) (*workspace.Workspace, error) {
	if len(mod.Config.Sources) == 0 {
		return nil, errors.Errorf("%s: no source files", mod.fsys.Join(mod.root, FileName))
	}
	return workspace.Load(ctx, mod.fsys, nil, mod.Sources()...)
}
