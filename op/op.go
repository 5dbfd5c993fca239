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

// Package op defines the operator records and tensor descriptors
// consumed by the partitioning engine.
package op

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// NoID is the identifier of operators synthesized by the engine.
const NoID = math.MaxUint64

// Op is a single computation with ordered inputs and outputs.
type Op struct {
	ID      uint64
	Kind    Kind
	Name    string
	Attrs   Attributes
	Inputs  []Tensor
	Outputs []Tensor
}

// New returns a new operator record.
func New(id uint64, kind Kind, name string) *Op {
	return &Op{ID: id, Kind: kind, Name: name, Attrs: Attributes{}}
}

// AddInputs appends tensors to the list of inputs.
func (o *Op) AddInputs(ts ...Tensor) *Op {
	for _, t := range ts {
		o.Inputs = append(o.Inputs, t.Clone())
	}
	return o
}

// AddOutputs appends tensors to the list of outputs.
func (o *Op) AddOutputs(ts ...Tensor) *Op {
	for _, t := range ts {
		o.Outputs = append(o.Outputs, t.Clone())
	}
	return o
}

// SetAttr sets the value of an attribute, replacing any previous value.
func (o *Op) SetAttr(name string, v cty.Value) *Op {
	if o.Attrs == nil {
		o.Attrs = Attributes{}
	}
	o.Attrs[name] = v
	return o
}

// HasID returns true if the operator has been given an identifier by the caller.
func (o *Op) HasID() bool {
	return o.ID != NoID
}

// Clone returns a deep copy of the record.
func (o *Op) Clone() *Op {
	c := *o
	c.Attrs = o.Attrs.Clone()
	c.Inputs = cloneTensors(o.Inputs)
	c.Outputs = cloneTensors(o.Outputs)
	return &c
}

func cloneTensors(ts []Tensor) []Tensor {
	if ts == nil {
		return nil
	}
	cs := slices.Clone(ts)
	for i := range cs {
		cs[i] = cs[i].Clone()
	}
	return cs
}

func (o *Op) String() string {
	var s strings.Builder
	id := "_"
	if o.HasID() {
		id = fmt.Sprint(o.ID)
	}
	fmt.Fprintf(&s, "%s#%s", o.Kind, id)
	if o.Name != "" {
		fmt.Fprintf(&s, "(%s)", o.Name)
	}
	fmt.Fprintf(&s, " %v -> %v", o.Inputs, o.Outputs)
	if len(o.Attrs) > 0 {
		s.WriteString(" ")
		s.WriteString(o.Attrs.String())
	}
	return s.String()
}
