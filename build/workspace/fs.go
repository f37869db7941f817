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

package workspace

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/pkg/errors"
	"github.com/gx-org/nn/base/sync"
)

// FileSystem gives access to source files.
type FileSystem interface {
	// Dir returns all but the last element of a path.
	Dir(path string) string
	// Join joins path elements into a single path.
	Join(elem ...string) string
	// Resolve returns the path referenced by an import in the file from.
	Resolve(from, ref string) string
	// ReadFile returns the content of a file.
	// The error wraps fs.ErrNotExist if the file does not exist.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile writes data into a file.
	WriteFile(ctx context.Context, path string, data []byte) error
	// Exists returns true if a file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// OSFileSystem reads files from the operating system.
type OSFileSystem struct{}

var _ FileSystem = OSFileSystem{}

// Dir returns all but the last element of a path.
func (OSFileSystem) Dir(p string) string {
	return filepath.Dir(p)
}

// Join joins path elements into a single path.
func (OSFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// Resolve returns the path referenced by an import in the file from.
func (fsys OSFileSystem) Resolve(from, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(fsys.Dir(from), filepath.FromSlash(ref))
}

// ReadFile returns the content of a file.
func (OSFileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// WriteFile writes data into a file.
func (OSFileSystem) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.WithStack(os.WriteFile(p, data, 0o644))
}

// Exists returns true if a file exists.
func (OSFileSystem) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

// MapFileSystem is an in-memory file system.
// Paths are slash separated. It is safe for concurrent use.
type MapFileSystem struct {
	files sync.Map[string, []byte]
}

var _ FileSystem = (*MapFileSystem)(nil)

// NewMapFileSystem returns a file system with the given files.
func NewMapFileSystem(files map[string]string) *MapFileSystem {
	fsys := &MapFileSystem{}
	for name, content := range files {
		fsys.files.Store(path.Clean(name), []byte(content))
	}
	return fsys
}

// Dir returns all but the last element of a path.
func (*MapFileSystem) Dir(p string) string {
	return path.Dir(p)
}

// Join joins path elements into a single path.
func (*MapFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// Resolve returns the path referenced by an import in the file from.
func (fsys *MapFileSystem) Resolve(from, ref string) string {
	if path.IsAbs(ref) {
		return path.Clean(ref)
	}
	return path.Join(fsys.Dir(from), ref)
}

// ReadFile returns the content of a file.
func (fsys *MapFileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := fsys.files.Load(path.Clean(p))
	if !ok {
		return nil, errors.Wrapf(fs.ErrNotExist, "open %s", p)
	}
	return slices.Clone(data), nil
}

// WriteFile writes data into a file.
func (fsys *MapFileSystem) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fsys.files.Store(path.Clean(p), slices.Clone(data))
	return nil
}

// Exists returns true if a file exists.
func (fsys *MapFileSystem) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := fsys.files.Load(path.Clean(p))
	return ok, nil
}
