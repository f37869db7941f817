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

// Package uname provides unique names.
package uname

import "fmt"

// Unique generates unique names from a root.
type Unique struct {
	names map[string]int
}

// New returns a new unique name generator.
func New() *Unique {
	return &Unique{names: make(map[string]int)}
}

// Register reserves a name so that it is never returned by Name.
func (n *Unique) Register(name string) {
	if _, ok := n.names[name]; !ok {
		n.names[name] = 1
	}
}

// Name returns root the first time it is called with that root.
// Following calls return root_1, root_2, ... skipping registered names.
func (n *Unique) Name(root string) string {
	next, ok := n.names[root]
	if !ok {
		n.names[root] = 1
		return root
	}
	for {
		name := fmt.Sprintf("%s_%d", root, next)
		next++
		if _, taken := n.names[name]; taken {
			continue
		}
		n.names[root] = next
		n.names[name] = 1
		return name
	}
}
