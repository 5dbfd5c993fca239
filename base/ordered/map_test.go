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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/fuse/base/ordered"
)

type entry struct {
	k string
	v int
}

func TestMap(t *testing.T) {
	tests := []struct {
		entries []entry
		want    []entry
	}{
		{
			entries: []entry{{k: "a", v: 1}, {k: "b", v: 2}, {k: "c", v: 3}},
			want:    []entry{{k: "a", v: 1}, {k: "b", v: 2}, {k: "c", v: 3}},
		},
		{
			entries: []entry{{k: "a", v: 1}, {k: "b", v: 2}, {k: "a", v: 3}},
			want:    []entry{{k: "a", v: 3}, {k: "b", v: 2}},
		},
		{
			entries: []entry{{k: "a", v: 1}, {k: "a", v: 2}, {k: "a", v: 3}},
			want:    []entry{{k: "a", v: 3}},
		},
	}
	for ti, test := range tests {
		m := ordered.NewMap[string, int]()
		for _, e := range test.entries {
			m.Store(e.k, e.v)
		}
		if m.Size() != len(test.want) {
			t.Errorf("test %d: map has %d entries but want %d", ti, m.Size(), len(test.want))
			continue
		}
		m = m.Clone()
		var got []entry
		for k, v := range m.Iter() {
			got = append(got, entry{k: k, v: v})
		}
		if diff := cmp.Diff(test.want, got, cmp.AllowUnexported(entry{})); diff != "" {
			t.Errorf("test %d: unexpected entries (-want +got):\n%s", ti, diff)
		}
		i := 0
		for v := range m.Values() {
			if v != test.want[i].v {
				t.Errorf("test %d value %d: got %d but want %d", ti, i, v, test.want[i].v)
			}
			i++
		}
	}
}

func TestMapLoadOrStore(t *testing.T) {
	m := ordered.NewMap[int, string]()
	if got, loaded := m.LoadOrStore(1, "a"); loaded || got != "a" {
		t.Errorf("first store: got %q, %v", got, loaded)
	}
	if got, loaded := m.LoadOrStore(1, "b"); !loaded || got != "a" {
		t.Errorf("second store: got %q, %v", got, loaded)
	}
	if m.Size() != 1 {
		t.Errorf("got size %d but want 1", m.Size())
	}
}

func TestSet(t *testing.T) {
	s := ordered.NewSet[uint64](4, 2, 4)
	if added := s.Add(7); !added {
		t.Errorf("7 reported as already present")
	}
	if added := s.Add(2); added {
		t.Errorf("2 reported as new")
	}
	want := []uint64{4, 2, 7}
	if diff := cmp.Diff(want, s.Slice()); diff != "" {
		t.Errorf("unexpected elements (-want +got):\n%s", diff)
	}
	if !s.Has(7) || s.Has(3) {
		t.Errorf("membership: Has(7)=%v Has(3)=%v", s.Has(7), s.Has(3))
	}
}
