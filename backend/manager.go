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

package backend

import (
	"sync/atomic"

	"github.com/gx-org/fuse/base/sync"
)

// Executable compiled by a library.
type Executable interface {
	// Key returns the key the executable has been compiled for.
	Key() Key
}

// Handle to an executable registered in a manager.
type Handle int64

// NoHandle is returned for partitions that could not be compiled.
const NoHandle Handle = -1

// ExecutableManager maps handles to executables.
// It is safe for concurrent use.
type ExecutableManager struct {
	next atomic.Int64
	exes sync.Map[Handle, Executable]
}

// NewExecutableManager returns a manager with no executable.
func NewExecutableManager() *ExecutableManager {
	return &ExecutableManager{}
}

// Reserve returns a new handle not associated with any executable yet.
// Handles are allocated in increasing order, starting from 0.
func (m *ExecutableManager) Reserve() Handle {
	return Handle(m.next.Add(1) - 1)
}

// Set the executable of a handle.
func (m *ExecutableManager) Set(h Handle, exe Executable) {
	m.exes.Store(h, exe)
}

// Register an executable and return its handle.
func (m *ExecutableManager) Register(exe Executable) Handle {
	h := m.Reserve()
	m.Set(h, exe)
	return h
}

// Get returns the executable of a handle.
func (m *ExecutableManager) Get(h Handle) (Executable, bool) {
	return m.exes.Load(h)
}

// Release removes an executable from the manager.
// It returns false if the handle has no executable.
func (m *ExecutableManager) Release(h Handle) bool {
	_, ok := m.exes.LoadAndDelete(h)
	return ok
}

// Len returns the number of executables in the manager.
func (m *ExecutableManager) Len() int {
	return m.exes.Size()
}
