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

package ordered_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/nn/base/ordered"
)

type entry struct {
	K string
	V int
}

func collect(m *ordered.Map[string, int]) []entry {
	var got []entry
	for k, v := range m.Iter() {
		got = append(got, entry{K: k, V: v})
	}
	return got
}

func TestMapOrder(t *testing.T) {
	tests := []struct {
		entries []entry
		want    []entry
	}{
		{
			entries: []entry{{"a", 1}, {"b", 2}, {"c", 3}},
			want:    []entry{{"a", 1}, {"b", 2}, {"c", 3}},
		},
		{
			entries: []entry{{"a", 1}, {"b", 2}, {"a", 3}},
			want:    []entry{{"a", 3}, {"b", 2}},
		},
		{
			entries: []entry{{"z", 1}, {"z", 2}, {"y", 3}},
			want:    []entry{{"z", 2}, {"y", 3}},
		},
	}
	for ti, test := range tests {
		m := ordered.NewMap[string, int]()
		for _, e := range test.entries {
			m.Store(e.K, e.V)
		}
		got := collect(m.Clone())
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("test %d: unexpected entries (-want +got):\n%s", ti, diff)
		}
		if m.Size() != len(test.want) {
			t.Errorf("test %d: size %d but want %d", ti, m.Size(), len(test.want))
		}
	}
}

func TestMapLoadOrStore(t *testing.T) {
	m := ordered.NewMap[string, int]()
	if v, loaded := m.LoadOrStore("a", 1); loaded || v != 1 {
		t.Errorf("LoadOrStore(a, 1) = %d, %v, want 1, false", v, loaded)
	}
	if v, loaded := m.LoadOrStore("a", 2); !loaded || v != 1 {
		t.Errorf("LoadOrStore(a, 2) = %d, %v, want 1, true", v, loaded)
	}
}

func TestMapDelete(t *testing.T) {
	m := ordered.NewMap[string, int]()
	for i, k := range []string{"a", "b", "c"} {
		m.Store(k, i)
	}
	m.Delete("b")
	m.Delete("unknown")
	if m.Has("b") {
		t.Errorf("key b still in the map")
	}
	got := slices.Collect(m.Keys())
	if diff := cmp.Diff([]string{"a", "c"}, got); diff != "" {
		t.Errorf("unexpected keys (-want +got):\n%s", diff)
	}
}
