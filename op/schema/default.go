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

package schema

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/fuse/op"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

var floatTypes = []dtype.DataType{dtype.Float32, dtype.Bfloat16}

type builder struct {
	s *Schema
}

func kind(k op.Kind, in, out int) *builder {
	return &builder{s: &Schema{
		Kind:       k,
		MinInputs:  in,
		MaxInputs:  in,
		MinOutputs: out,
		MaxOutputs: out,
		Defaults:   op.Attributes{},
	}}
}

func (b *builder) inputs(lo, hi int) *builder {
	b.s.MinInputs, b.s.MaxInputs = lo, hi
	return b
}

func (b *builder) outputs(lo, hi int) *builder {
	b.s.MinOutputs, b.s.MaxOutputs = lo, hi
	return b
}

func (b *builder) required(names ...string) *builder {
	b.s.Required = append(b.s.Required, names...)
	return b
}

func (b *builder) def(name string, v cty.Value) *builder {
	b.s.Defaults[name] = v
	return b
}

func (b *builder) verify(f func(*op.Op) error) *builder {
	b.s.Verify = f
	return b
}

func (b *builder) singleton() *builder {
	b.s.Singleton = true
	b.s.DTypes = floatTypes
	return b
}

func unary(k op.Kind) *builder {
	return kind(k, 1, 1)
}

func binary(k op.Kind) *builder {
	return kind(k, 2, 1).def("auto_broadcast", str("numpy"))
}

func backprop(k op.Kind) *builder {
	return kind(k, 2, 1)
}

func convolution(k op.Kind) *builder {
	return kind(k, 2, 1).
		required("strides", "pads_begin", "pads_end", "dilations").
		def("auto_pad", str("None")).
		def("groups", cty.NumberIntVal(1)).
		def("data_format", str("NXC")).
		def("filter_format", str("XIO")).
		verify(verifyWindow)
}

func pool(k op.Kind) *builder {
	return kind(k, 1, 1).
		required("strides", "kernel", "pads_begin", "pads_end").
		def("auto_pad", str("None")).
		def("data_format", str("NXC")).
		def("rounding_type", str("floor")).
		verify(verifyWindow)
}

// verifyWindow checks that all the spatial attributes of a window
// operator have the same number of dimensions.
func verifyWindow(o *op.Op) error {
	rank := -1
	for _, name := range []string{"strides", "kernel", "pads_begin", "pads_end", "dilations"} {
		if !o.Attrs.Has(name) {
			continue
		}
		vals, ok := o.Attrs.Ints(name)
		if !ok {
			return errors.Errorf("attribute %q is not a list of integers", name)
		}
		if rank < 0 {
			rank = len(vals)
			continue
		}
		if len(vals) != rank {
			return errors.Errorf("attribute %q has %d spatial dimensions but want %d", name, len(vals), rank)
		}
	}
	return nil
}

func verifyMinMax(o *op.Op) error {
	lo, okLo := o.Attrs.Float("min")
	hi, okHi := o.Attrs.Float("max")
	if !okLo || !okHi {
		return errors.Errorf("attributes min and max must be numbers")
	}
	if lo > hi {
		return errors.Errorf("min %g is greater than max %g", lo, hi)
	}
	return nil
}

func verifyEpsilon(o *op.Op) error {
	eps, ok := o.Attrs.Float("epsilon")
	if !ok {
		return errors.Errorf("attribute epsilon must be a number")
	}
	if eps < 0 {
		return errors.Errorf("epsilon %g is negative", eps)
	}
	return nil
}

func build(bs ...*builder) []*Schema {
	schemas := make([]*Schema, len(bs))
	for i, b := range bs {
		schemas[i] = b.s
	}
	return schemas
}

// Default returns the catalogue of the kinds produced by frameworks.
// Kinds absent from the catalogue are accepted without verification
// and are never executed on their own.
func Default() *Catalog {
	c, err := NewCatalog(build(
		unary(op.Abs).singleton(),
		binary(op.Add).singleton(),
		pool(op.AvgPool).def("exclude_pad", cty.False).singleton(),
		kind(op.AvgPoolBackprop, 1, 1).inputs(1, 2).
			required("strides", "kernel", "pads_begin", "pads_end").
			def("exclude_pad", cty.False).
			def("data_format", str("NXC")).
			singleton(),
		kind(op.BatchNormInference, 5, 1).
			required("epsilon").
			def("data_format", str("NXC")).
			verify(verifyEpsilon).
			singleton(),
		kind(op.BatchNormForwardTraining, 5, 5).inputs(3, 5).
			required("epsilon").
			def("momentum", cty.NumberFloatVal(0.1)).
			def("data_format", str("NXC")).
			verify(verifyEpsilon).
			singleton(),
		kind(op.BatchNormTrainingBackprop, 5, 3).inputs(4, 5).outputs(1, 3).
			required("epsilon").
			def("is_training", cty.True).
			def("data_format", str("NXC")).
			verify(verifyEpsilon).
			singleton(),
		binary(op.BiasAdd).def("data_format", str("NXC")),
		kind(op.BiasAddBackprop, 1, 1).def("data_format", str("NXC")),
		unary(op.Clamp).required("min", "max").verify(verifyMinMax),
		backprop(op.ClampBackprop).required("min", "max").verify(verifyMinMax),
		kind(op.Concat, 1, 1).inputs(1, Unbounded).required("axis"),
		convolution(op.Convolution).inputs(2, 3).singleton(),
		convolution(op.ConvolutionBackpropData).inputs(2, 3).singleton(),
		convolution(op.ConvolutionBackpropFilters).inputs(2, 3).singleton(),
		binary(op.Divide),
		unary(op.Elu).required("alpha").singleton(),
		backprop(op.EluBackprop).required("alpha"),
		unary(op.Erf),
		unary(op.Exp).singleton(),
		unary(op.GELU).singleton(),
		backprop(op.GELUBackprop).singleton(),
		unary(op.HardTanh).required("min", "max").verify(verifyMinMax).singleton(),
		backprop(op.HardTanhBackprop).required("min", "max").verify(verifyMinMax),
		kind(op.Interpolate, 1, 1).inputs(1, 2).required("mode"),
		kind(op.LayerNorm, 1, 1).inputs(1, 3).outputs(1, 3).
			def("keep_stats", cty.True).
			def("begin_norm_axis", cty.NumberIntVal(-1)).
			def("use_affine", cty.True).
			def("epsilon", cty.NumberFloatVal(1e-5)).
			verify(verifyEpsilon).
			singleton(),
		kind(op.LayerNormBackprop, 4, 1).inputs(4, 6).outputs(1, 3).
			def("begin_norm_axis", cty.NumberIntVal(-1)).
			def("use_affine", cty.True).
			def("epsilon", cty.NumberFloatVal(1e-5)),
		unary(op.Log).singleton(),
		unary(op.LogSoftmax).def("axis", cty.NumberIntVal(-1)).singleton(),
		backprop(op.LogSoftmaxBackprop).def("axis", cty.NumberIntVal(-1)).singleton(),
		kind(op.MatMul, 2, 1).inputs(2, 3).
			def("transpose_a", cty.False).
			def("transpose_b", cty.False).
			singleton(),
		binary(op.Maximum).singleton(),
		pool(op.MaxPool).def("dilations", op.IntList()).singleton(),
		kind(op.MaxPoolBackprop, 2, 1).
			required("strides", "kernel", "pads_begin", "pads_end").
			def("data_format", str("NXC")).
			singleton(),
		binary(op.Minimum).singleton(),
		binary(op.Multiply).singleton(),
		binary(op.Pow).singleton(),
		kind(op.ReduceSum, 1, 1).inputs(1, 2).def("keep_dims", cty.False),
		unary(op.ReLU).singleton(),
		backprop(op.ReLUBackprop).singleton(),
		kind(op.Reshape, 1, 1).inputs(1, 2),
		unary(op.Round),
		unary(op.Sigmoid),
		backprop(op.SigmoidBackprop),
		unary(op.SoftMax).def("axis", cty.NumberIntVal(1)).singleton(),
		backprop(op.SoftMaxBackprop).def("axis", cty.NumberIntVal(1)).singleton(),
		unary(op.SoftPlus).def("beta", cty.NumberIntVal(1)),
		unary(op.Sqrt).singleton(),
		unary(op.Square).singleton(),
		unary(op.Tanh).singleton(),
		kind(op.Transpose, 1, 1).inputs(1, 2),
		kind(op.End, 1, 0),
	)...)
	if err != nil {
		panic(errors.Wrap(err, "invalid default catalogue"))
	}
	return c
}
