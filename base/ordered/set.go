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

package ordered

import "iter"

// Set keeps the first occurrence of each element, in insertion order.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

// NewSet returns a new set with the given elements.
func NewSet[K comparable](elts ...K) *Set[K] {
	s := &Set[K]{m: NewMap[K, struct{}]()}
	for _, e := range elts {
		s.Add(e)
	}
	return s
}

// Add an element to the set.
// Returns false if the element was already present.
func (s *Set[K]) Add(e K) bool {
	_, loaded := s.m.LoadOrStore(e, struct{}{})
	return !loaded
}

// Has returns true if the element is in the set.
func (s *Set[K]) Has(e K) bool {
	_, ok := s.m.Load(e)
	return ok
}

// All ranges over the elements in insertion order.
func (s *Set[K]) All() iter.Seq[K] {
	return s.m.Keys()
}

// Slice returns the elements in insertion order.
func (s *Set[K]) Slice() []K {
	elts := make([]K, 0, s.m.Size())
	for e := range s.m.Keys() {
		elts = append(elts, e)
	}
	return elts
}

// Size returns the number of elements in the set.
func (s *Set[K]) Size() int {
	return s.m.Size()
}
