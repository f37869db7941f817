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
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [files]",
		Short: "Check the shapes of all flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			c, err := s.check(args)
			if err != nil {
				return err
			}
			if err := s.report(c); err != nil {
				return err
			}
			ok := color.New(color.FgGreen)
			if s.printer.Color {
				ok.EnableColor()
			} else {
				ok.DisableColor()
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d file(s) checked\n", ok.Sprint("ok"), c.Workspace.Len())
			return err
		},
	}
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [files]",
		Short: "Print the vertices and edges of the checked flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			c, err := s.check(args)
			if err != nil {
				return err
			}
			if err := c.Fprint(cmd.OutOrStdout()); err != nil {
				return err
			}
			return s.report(c)
		},
	}
}
