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

// Package hclgraph builds operator graphs from HCL descriptions.
//
// Tensors are declared before being referenced by operators:
//
//	tensor "x" {
//	  dtype = "float32"
//	  shape = [1, 224, 224, 3]
//	}
//
//	op "conv1" {
//	  kind    = "Convolution"
//	  inputs  = ["x", "w", "b"]
//	  outputs = ["y"]
//	  attrs = {
//	    strides = [1, 1]
//	  }
//	}
//
// Identifiers are optional and default to the position of the block in the file.
package hclgraph

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"go.uber.org/multierr"
)

type tensorBlock struct {
	Name  string  `hcl:"name,label"`
	ID    *uint64 `hcl:"id,optional"`
	DType string  `hcl:"dtype"`
	Shape []int   `hcl:"shape,optional"`
}

type opBlock struct {
	Name    string         `hcl:"name,label"`
	ID      *uint64        `hcl:"id,optional"`
	Kind    string         `hcl:"kind"`
	Inputs  []string       `hcl:"inputs,optional"`
	Outputs []string       `hcl:"outputs,optional"`
	Attrs   hcl.Expression `hcl:"attrs,optional"`
}

type file struct {
	Tensors []*tensorBlock `hcl:"tensor,block"`
	Ops     []*opBlock     `hcl:"op,block"`
}

var dtypes = map[string]dtype.DataType{
	"bool":     dtype.Bool,
	"int32":    dtype.Int32,
	"int64":    dtype.Int64,
	"uint32":   dtype.Uint32,
	"uint64":   dtype.Uint64,
	"float32":  dtype.Float32,
	"float64":  dtype.Float64,
	"bfloat16": dtype.Bfloat16,
}

// Load reads a graph description from a file and returns the built graph.
func Load(path string, opts ...graph.Option) (*graph.Graph, error) {
	f, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "cannot parse graph %s", path)
	}
	return decode(f, path, opts)
}

// Parse reads a graph description and returns the built graph.
func Parse(src []byte, filename string, opts ...graph.Option) (*graph.Graph, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "cannot parse graph %s", filename)
	}
	return decode(f, filename, opts)
}

type decoder struct {
	filename string
	tensors  map[string]op.Tensor
	ids      map[uint64]string
	err      error
}

func (d *decoder) errorf(format string, args ...any) {
	d.err = multierr.Append(d.err, errors.Wrap(errors.Errorf(format, args...), d.filename))
}

func decode(f *hcl.File, filename string, opts []graph.Option) (*graph.Graph, error) {
	var desc file
	if diags := gohcl.DecodeBody(f.Body, nil, &desc); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "cannot decode graph %s", filename)
	}
	d := &decoder{
		filename: filename,
		tensors:  make(map[string]op.Tensor),
		ids:      make(map[uint64]string),
	}
	for i, blk := range desc.Tensors {
		d.tensor(uint64(i), blk)
	}
	g := graph.New(opts...)
	for i, blk := range desc.Ops {
		o := d.op(uint64(i), blk)
		if o == nil {
			continue
		}
		if err := g.AddOp(o); err != nil {
			d.err = multierr.Append(d.err, errors.Wrap(err, filename))
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if err := g.Build(); err != nil {
		return nil, errors.Wrapf(err, "cannot build graph %s", filename)
	}
	return g, nil
}

func (d *decoder) tensor(id uint64, blk *tensorBlock) {
	if blk.ID != nil {
		id = *blk.ID
	}
	dt, ok := dtypes[blk.DType]
	if !ok {
		d.errorf("tensor %s: unknown data type %q", blk.Name, blk.DType)
		return
	}
	if _, dup := d.tensors[blk.Name]; dup {
		d.errorf("tensor %s declared twice", blk.Name)
		return
	}
	if other, dup := d.ids[id]; dup {
		d.errorf("tensors %s and %s have the same identifier %d", other, blk.Name, id)
		return
	}
	d.ids[id] = blk.Name
	d.tensors[blk.Name] = op.NewTensor(id, dt, blk.Shape...)
}

func (d *decoder) lookup(o *op.Op, names []string) []op.Tensor {
	ts := make([]op.Tensor, 0, len(names))
	for _, name := range names {
		t, ok := d.tensors[name]
		if !ok {
			d.errorf("operator %s: undefined tensor %s", o.Name, name)
			continue
		}
		ts = append(ts, t)
	}
	return ts
}

func (d *decoder) op(id uint64, blk *opBlock) *op.Op {
	if blk.ID != nil {
		id = *blk.ID
	}
	kind, ok := op.KindFromString(blk.Kind)
	if !ok {
		d.errorf("operator %s: unknown kind %q", blk.Name, blk.Kind)
		return nil
	}
	o := op.New(id, kind, blk.Name)
	o.AddInputs(d.lookup(o, blk.Inputs)...)
	o.AddOutputs(d.lookup(o, blk.Outputs)...)
	attrs, diags := blk.Attrs.Value(nil)
	if diags.HasErrors() {
		d.err = multierr.Append(d.err, errors.Wrapf(diags, "operator %s", blk.Name))
		return nil
	}
	if attrs.IsNull() {
		return o
	}
	if !attrs.CanIterateElements() || attrs.Type().IsListType() || attrs.Type().IsTupleType() {
		d.errorf("operator %s: attributes must be an object", blk.Name)
		return nil
	}
	for it := attrs.ElementIterator(); it.Next(); {
		k, v := it.Element()
		o.SetAttr(k.AsString(), attrValue(v))
	}
	return o
}

// attrValue converts tuples of numbers into lists.
func attrValue(v cty.Value) cty.Value {
	tp := v.Type()
	if !tp.IsTupleType() {
		return v
	}
	if v.LengthInt() == 0 {
		return op.IntList()
	}
	for _, el := range tp.TupleElementTypes() {
		if !el.Equals(cty.Number) {
			return v
		}
	}
	l, err := convert.Convert(v, cty.List(cty.Number))
	if err != nil {
		return v
	}
	return l
}
