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
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"github.com/gx-org/nn/build/checker"
	"github.com/gx-org/nn/build/fmterr"
	"github.com/gx-org/nn/build/module"
	"github.com/gx-org/nn/build/workspace"
)

// errDiagnostics is returned when diagnostics have been printed.
var errDiagnostics = errors.New("diagnostics reported")

type session struct {
	ctx     context.Context
	cmd     *cobra.Command
	fsys    workspace.FileSystem
	printer fmterr.Printer
	logger  *slog.Logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Root().PersistentFlags()
	mode, err := flags.GetString("color")
	if err != nil {
		return nil, err
	}
	s := &session{
		ctx:     cmd.Context(),
		cmd:     cmd,
		fsys:    workspace.OSFileSystem{},
		printer: fmterr.Printer{Context: 1},
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	switch mode {
	case "on":
		s.printer.Color = true
	case "off":
	case "auto":
		s.printer.Color = isTerminal(cmd.OutOrStdout())
	default:
		return nil, errors.Errorf("invalid --color value %q: want auto, on, or off", mode)
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}
	if verbose {
		s.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return s, nil
}

// project returns the project of the directory given by --dir
// or of the working directory.
func (s *session) project() (*module.Module, error) {
	dir, err := s.cmd.Root().PersistentFlags().GetString("dir")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return module.Current(s.ctx)
	}
	return module.New(s.ctx, s.fsys, dir)
}

// check loads and checks files. The sources of the project are used
// if no file is given.
func (s *session) check(files []string) (*checker.Context, error) {
	roots := files
	if len(roots) == 0 {
		mod, err := s.project()
		if err != nil {
			return nil, err
		}
		roots = mod.Sources()
		if len(roots) == 0 {
			return nil, errors.Errorf("no file given and no sources in %s", s.fsys.Join(mod.Root(), module.FileName))
		}
	}
	ws, err := workspace.Load(s.ctx, s.fsys, nil, roots...)
	if err != nil {
		return nil, err
	}
	var opts []checker.Option
	if s.logger != nil {
		opts = append(opts, checker.WithLogger(s.logger))
	}
	return checker.Check(ws, opts...), nil
}

// report prints the diagnostics of a check.
func (s *session) report(c *checker.Context) error {
	if c.Diagnostics().Empty() {
		return nil
	}
	if err := s.printer.Fprint(s.cmd.OutOrStdout(), c.Diagnostics()); err != nil {
		return err
	}
	return errDiagnostics
}
