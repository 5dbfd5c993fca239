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

package schema_test

import (
	"strings"
	"testing"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/op/schema"
	"github.com/zclconf/go-cty/cty"
)

func f32(id uint64) op.Tensor {
	return op.NewTensor(id, dtype.Float32, 8, 16)
}

func conv(inputs int) *op.Op {
	o := op.New(1, op.Convolution, "conv").
		SetAttr("strides", op.IntList(1, 1)).
		SetAttr("pads_begin", op.IntList(0, 0)).
		SetAttr("pads_end", op.IntList(0, 0)).
		SetAttr("dilations", op.IntList(1, 1))
	for i := range inputs {
		o.AddInputs(f32(uint64(i)))
	}
	return o.AddOutputs(f32(10))
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		op   *op.Op
		err  string
	}{
		{
			name: "conv with 2 inputs",
			op:   conv(2),
		},
		{
			name: "conv with bias",
			op:   conv(3),
		},
		{
			name: "conv with 1 input",
			op:   conv(1),
			err:  "at least 2",
		},
		{
			name: "conv with 4 inputs",
			op:   conv(4),
			err:  "at most 3",
		},
		{
			name: "conv missing strides",
			op: func() *op.Op {
				o := conv(2)
				delete(o.Attrs, "strides")
				return o
			}(),
			err: `"strides"`,
		},
		{
			name: "conv with inconsistent window",
			op:   conv(2).SetAttr("pads_end", op.IntList(0, 0, 0)),
			err:  "spatial dimensions",
		},
		{
			name: "hardtanh",
			op: op.New(2, op.HardTanh, "").
				SetAttr("min", cty.NumberIntVal(0)).
				SetAttr("max", cty.NumberIntVal(6)).
				AddInputs(f32(1)).AddOutputs(f32(2)),
		},
		{
			name: "hardtanh with min greater than max",
			op: op.New(2, op.HardTanh, "").
				SetAttr("min", cty.NumberIntVal(7)).
				SetAttr("max", cty.NumberIntVal(6)).
				AddInputs(f32(1)).AddOutputs(f32(2)),
			err: "greater than max",
		},
		{
			name: "relu with two outputs",
			op:   op.New(3, op.ReLU, "").AddInputs(f32(1)).AddOutputs(f32(2), f32(3)),
			err:  "outputs",
		},
	}
	tbl := schema.Default()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, ok := tbl.Lookup(test.op.Kind)
			if !ok {
				t.Fatalf("no schema for %s", test.op.Kind)
			}
			s.ApplyDefaults(test.op)
			err := s.Check(test.op)
			if test.err == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected an error containing %q", test.err)
			}
			if !strings.Contains(err.Error(), test.err) {
				t.Errorf("got error %q but want it to contain %q", err.Error(), test.err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	s, _ := schema.Default().Lookup(op.Convolution)
	o := conv(2).SetAttr("groups", cty.NumberIntVal(4))
	s.ApplyDefaults(o)
	if got, _ := o.Attrs.Int("groups"); got != 4 {
		t.Errorf("groups overridden by default: got %d", got)
	}
	if got, _ := o.Attrs.Text("data_format"); got != "NXC" {
		t.Errorf("data_format: got %q but want NXC", got)
	}
}

func TestSupportsSingleton(t *testing.T) {
	tbl := schema.Default()
	tests := []struct {
		op   *op.Op
		want bool
	}{
		{op: conv(2), want: true},
		{op: op.New(1, op.ReLU, "").AddInputs(f32(1)).AddOutputs(f32(2)), want: true},
		{op: op.New(1, op.BiasAdd, "").AddInputs(f32(1), f32(2)).AddOutputs(f32(3)), want: false},
		{op: op.New(1, op.Sigmoid, "").AddInputs(f32(1)).AddOutputs(f32(2)), want: false},
		{op: op.New(1, op.Wildcard, "").AddOutputs(f32(2)), want: false},
		{
			op: op.New(1, op.ReLU, "").
				AddInputs(op.NewTensor(1, dtype.Int32, 4)).
				AddOutputs(op.NewTensor(2, dtype.Int32, 4)),
			want: false,
		},
		{op: op.New(1, op.ConvRelu, "").AddInputs(f32(1)).AddOutputs(f32(2)), want: false},
	}
	for i, test := range tests {
		if got := schema.SupportsSingleton(tbl, test.op); got != test.want {
			t.Errorf("test %d: %s: got %v but want %v", i, test.op, got, test.want)
		}
	}
	if schema.SupportsSingleton(nil, conv(2)) {
		t.Errorf("nil table reported support")
	}
}

func TestCatalogRegister(t *testing.T) {
	c, err := schema.NewCatalog(&schema.Schema{Kind: op.ReLU})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Register(&schema.Schema{Kind: op.ReLU}); err == nil {
		t.Errorf("duplicate schema accepted")
	}
	if err := c.Register(&schema.Schema{Kind: op.Invalid}); err == nil {
		t.Errorf("invalid kind accepted")
	}
	noRelu := c.Map(func(s *schema.Schema) *schema.Schema {
		if s.Kind == op.ReLU {
			return nil
		}
		return s
	})
	if _, ok := noRelu.Lookup(op.ReLU); ok {
		t.Errorf("mapped catalogue still has ReLU")
	}
}
