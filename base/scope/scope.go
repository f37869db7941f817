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


// Package scope provides lexical scopes mapping names to values.
package scope

import (
	"fmt"
	"iter"
	"strings"

	"github.com/gx-org/nn/base/ordered"
)

// Scope is a read-only view of a scope.
type Scope[V any] interface {
	// Find a value given its name, looking up through parent scopes.
	Find(name string) (V, bool)
}

// RWScope is a scope in which names can be defined.
type RWScope[V any] struct {
	parent Scope[V]
	local  *ordered.Map[string, V]
}

var _ Scope[any] = (*RWScope[any])(nil)

// New returns a new scope given a parent, which can be nil.
func New[V any](parent Scope[V]) *RWScope[V] {
	return &RWScope[V]{parent: parent, local: ordered.NewMap[string, V]()}
}

// Define maps a name to a value in the local scope, shadowing the parent.
func (s *RWScope[V]) Define(name string, v V) {
	s.local.Store(name, v)
}

// DefineOnce defines a name unless it is already local.
// Returns false if the name was already defined.
func (s *RWScope[V]) DefineOnce(name string, v V) bool {
	_, loaded := s.local.LoadOrStore(name, v)
	return !loaded
}

// IsLocal returns true if the name is defined in the local scope.
func (s *RWScope[V]) IsLocal(name string) bool {
	return s.local.Has(name)
}

// LocalNames returns the names of the local scope in definition order.
func (s *RWScope[V]) LocalNames() iter.Seq[string] {
	return s.local.Keys()
}

// Find a value in the scope and its parents.
func (s *RWScope[V]) Find(name string) (v V, ok bool) {
	if v, ok = s.local.Load(name); ok || s.parent == nil {
		return
	}
	return s.parent.Find(name)
}

// ReadOnly returns a view of the scope in which nothing can be defined.
func (s *RWScope[V]) ReadOnly() Scope[V] {
	return roScope[V]{s: s}
}

// String lists the names of the scope, innermost first.
func (s *RWScope[V]) String() string {
	var names []string
	for name := range s.local.Keys() {
		names = append(names, name)
	}
	str := "{" + strings.Join(names, ", ") + "}"
	if s.parent != nil {
		str += " <- " + fmt.Sprint(s.parent)
	}
	return str
}

type roScope[V any] struct {
	s *RWScope[V]
}

func (ro roScope[V]) Find(name string) (V, bool) {
	return ro.s.Find(name)
}

func (ro roScope[V]) String() string {
	return ro.s.String()
}
