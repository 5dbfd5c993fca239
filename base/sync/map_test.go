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

package sync_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/fuse/base/sync"
)

func TestMap(t *testing.T) {
	var m sync.Map[int64, string]
	m.Store(1, "a")
	m.Store(2, "b")
	if v, loaded := m.LoadOrStore(1, "c"); !loaded || v != "a" {
		t.Errorf("got %q, %v but want a, true", v, loaded)
	}
	if v, loaded := m.LoadOrStore(3, "c"); loaded || v != "c" {
		t.Errorf("got %q, %v but want c, false", v, loaded)
	}
	m.Delete(2)
	if _, ok := m.Load(2); ok {
		t.Errorf("key 2 has not been deleted")
	}
	m.Store(4, "d")
	if v, loaded := m.LoadAndDelete(4); !loaded || v != "d" {
		t.Errorf("got %q, %v but want d, true", v, loaded)
	}
	if _, loaded := m.LoadAndDelete(4); loaded {
		t.Errorf("key 4 deleted twice")
	}
	var keys []int64
	for k := range m.Iter() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if diff := cmp.Diff([]int64{1, 3}, keys); diff != "" {
		t.Errorf("unexpected keys (-want +got):\n%s", diff)
	}
	if m.Size() != 2 {
		t.Errorf("got size %d but want 2", m.Size())
	}
	m.Delete(1)
	m.Delete(3)
	if !m.Empty() {
		t.Errorf("map not empty")
	}
}
