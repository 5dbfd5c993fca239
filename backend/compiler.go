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
	"log/slog"

	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/op/schema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Library of kernels.
type Library interface {
	// Name of the library.
	Name() string
	// Compile returns the executable of a key.
	Compile(Key) (Executable, error)
}

// Kernel is the executable returned by KernelLibrary.
type Kernel struct {
	Library     string
	key         Key
	Fingerprint string
}

var _ Executable = (*Kernel)(nil)

// Key returns the key the kernel has been compiled for.
func (k *Kernel) Key() Key {
	return k.key
}

// KernelLibrary provides a kernel for every fused kind and for
// the kinds a schema table flags as singleton.
type KernelLibrary struct {
	name    string
	schemas schema.Table
}

var _ Library = (*KernelLibrary)(nil)

// NewKernelLibrary returns a library given the schemas of the kinds it supports.
func NewKernelLibrary(name string, tbl schema.Table) *KernelLibrary {
	return &KernelLibrary{name: name, schemas: tbl}
}

// Name of the library.
func (lib *KernelLibrary) Name() string {
	return lib.name
}

// Supports returns true if the library has a kernel for a kind and its data types.
func (lib *KernelLibrary) Supports(key Key) bool {
	if key.Kind.IsInternal() {
		return true
	}
	o := op.New(op.NoID, key.Kind, "")
	for _, sh := range key.Inputs {
		o.AddInputs(op.Tensor{Shape: sh})
	}
	for _, sh := range key.Outputs {
		o.AddOutputs(op.Tensor{Shape: sh})
	}
	return schema.SupportsSingleton(lib.schemas, o)
}

// Compile returns the kernel of a key.
func (lib *KernelLibrary) Compile(key Key) (Executable, error) {
	if !lib.Supports(key) {
		return nil, errors.Wrapf(ErrUnsupportedKind, "library %s cannot compile %s", lib.name, key.Kind)
	}
	return &Kernel{
		Library:     lib.name,
		key:         key,
		Fingerprint: key.Fingerprint(),
	}, nil
}

// Compiler compiles partitions, reusing the executables of partitions sharing the same key.
// It is not safe for concurrent use.
type Compiler struct {
	lib    Library
	mgr    *ExecutableManager
	cache  map[string]Handle
	logger *slog.Logger
}

// CompilerOption configures a compiler.
type CompilerOption func(*Compiler)

// WithLogger sets the logger of the compiler.
func WithLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// NewCompiler returns a compiler registering executables in a manager.
func NewCompiler(lib Library, mgr *ExecutableManager, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		lib:    lib,
		mgr:    mgr,
		cache:  make(map[string]Handle),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile returns the handle of the executable of every partition.
// Partitions which cannot be compiled are given NoHandle and all
// the errors are returned.
func (c *Compiler) Compile(parts []*graph.Partition) ([]Handle, error) {
	handles := make([]Handle, len(parts))
	var errs error
	for i, p := range parts {
		h, err := c.compile(p)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "partition %d %q", p.ID, p.Label))
		}
		handles[i] = h
	}
	return handles, errs
}

func (c *Compiler) compile(p *graph.Partition) (Handle, error) {
	if p.Status == graph.Unsupported {
		return NoHandle, errors.Wrapf(ErrUnsupportedKind, "no kernel for %s", p.Op.Kind)
	}
	key := KeyOf(p)
	fp := key.Fingerprint()
	if h, ok := c.cache[fp]; ok {
		c.logger.Debug("kernel cache hit", "partition", p.Label, "handle", int64(h))
		return h, nil
	}
	exe, err := c.lib.Compile(key)
	if err != nil {
		return NoHandle, err
	}
	h := c.mgr.Register(exe)
	c.cache[fp] = h
	c.logger.Debug("compiled kernel", "partition", p.Label, "library", c.lib.Name(), "handle", int64(h))
	return h, nil
}

// NumCompiled returns the number of executables compiled so far.
func (c *Compiler) NumCompiled() int {
	return len(c.cache)
}
