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

// Package schema describes the operator kinds accepted by the engine:
// attribute defaults, verification rules and standalone execution support.
package schema

import (
	"slices"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/fuse/op"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// Unbounded is the maximum arity of kinds with no arity limit.
const Unbounded = -1

// Schema of an operator kind.
type Schema struct {
	Kind op.Kind

	// MinInputs and MaxInputs bound the number of inputs.
	MinInputs, MaxInputs int
	// MinOutputs and MaxOutputs bound the number of outputs.
	MinOutputs, MaxOutputs int

	// Required lists attributes that must be set by the caller.
	Required []string
	// Defaults are set on records missing the attribute.
	Defaults op.Attributes
	// Verify runs additional checks once defaults have been applied.
	Verify func(*op.Op) error

	// Singleton is true if a kernel library can execute the kind on its own.
	Singleton bool
	// DTypes lists the element types supported by the singleton kernel.
	// All types are supported if empty.
	DTypes []dtype.DataType
	// Excluded lists element types the singleton kernel never supports,
	// even when DTypes is empty.
	Excluded []dtype.DataType
}

// Table looks up schemas given a kind.
type Table interface {
	Lookup(op.Kind) (*Schema, bool)
}

// ApplyDefaults sets on the record the default attributes it does not define.
func (s *Schema) ApplyDefaults(o *op.Op) {
	for _, name := range s.Defaults.Names() {
		if o.Attrs.Has(name) {
			continue
		}
		o.SetAttr(name, s.Defaults[name])
	}
}

func checkArity(what string, n, lo, hi int) error {
	if n < lo {
		return errors.Errorf("got %d %s but want at least %d", n, what, lo)
	}
	if hi != Unbounded && n > hi {
		return errors.Errorf("got %d %s but want at most %d", n, what, hi)
	}
	return nil
}

// Check returns an error if the record does not follow the schema.
func (s *Schema) Check(o *op.Op) error {
	if o.Kind != s.Kind {
		return errors.Errorf("schema of %s cannot check a %s", s.Kind, o.Kind)
	}
	if err := checkArity("inputs", len(o.Inputs), s.MinInputs, s.MaxInputs); err != nil {
		return err
	}
	if err := checkArity("outputs", len(o.Outputs), s.MinOutputs, s.MaxOutputs); err != nil {
		return err
	}
	for _, name := range s.Required {
		if !o.Attrs.Has(name) {
			return errors.Errorf("missing required attribute %q", name)
		}
	}
	if s.Verify != nil {
		return s.Verify(o)
	}
	return nil
}

// SupportsDType returns true if the singleton kernel accepts the element type.
func (s *Schema) SupportsDType(dt dtype.DataType) bool {
	if slices.Contains(s.Excluded, dt) {
		return false
	}
	return len(s.DTypes) == 0 || slices.Contains(s.DTypes, dt)
}

// SupportsSingleton returns true if a library can execute the record
// alone, as described by the table.
func SupportsSingleton(tbl Table, o *op.Op) bool {
	if tbl == nil {
		return false
	}
	s, ok := tbl.Lookup(o.Kind)
	if !ok || !s.Singleton {
		return false
	}
	for _, t := range o.Inputs {
		if !s.SupportsDType(t.DType()) {
			return false
		}
	}
	for _, t := range o.Outputs {
		if !s.SupportsDType(t.DType()) {
			return false
		}
	}
	return true
}

// Catalog is a table of schemas.
type Catalog struct {
	schemas map[op.Kind]*Schema
}

var _ Table = (*Catalog)(nil)

// NewCatalog returns a catalog given a list of schemas.
func NewCatalog(schemas ...*Schema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[op.Kind]*Schema, len(schemas))}
	for _, s := range schemas {
		if err := c.Register(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register a schema in the catalog.
func (c *Catalog) Register(s *Schema) error {
	if !s.Kind.IsValid() {
		return errors.Errorf("cannot register a schema for invalid kind %s", s.Kind)
	}
	if _, dup := c.schemas[s.Kind]; dup {
		return errors.Errorf("schema for %s already registered", s.Kind)
	}
	c.schemas[s.Kind] = s
	return nil
}

// Lookup returns the schema of a kind.
func (c *Catalog) Lookup(k op.Kind) (*Schema, bool) {
	s, ok := c.schemas[k]
	return s, ok
}

// Kinds returns the kinds registered in the catalog, sorted.
func (c *Catalog) Kinds() []op.Kind {
	kinds := make([]op.Kind, 0, len(c.schemas))
	for k := range c.schemas {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Map returns a new catalog by applying a function to every schema.
// Schemas for which f returns nil are dropped.
func (c *Catalog) Map(f func(*Schema) *Schema) *Catalog {
	r := &Catalog{schemas: make(map[op.Kind]*Schema, len(c.schemas))}
	for k, s := range c.schemas {
		if ns := f(s); ns != nil {
			r.schemas[k] = ns
		}
	}
	return r
}

// Clone returns a copy of the schema that does not share its slices or defaults.
func (s *Schema) Clone() *Schema {
	c := *s
	c.Required = slices.Clone(s.Required)
	c.Defaults = s.Defaults.Clone()
	c.DTypes = slices.Clone(s.DTypes)
	c.Excluded = slices.Clone(s.Excluded)
	return &c
}

func str(s string) cty.Value { return cty.StringVal(s) }
