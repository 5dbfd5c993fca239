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

package passes_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/op/schema"
	"github.com/gx-org/fuse/pass"
	"github.com/gx-org/fuse/passes"
	"github.com/zclconf/go-cty/cty"
)

func tensor(id uint64) op.Tensor {
	return op.NewTensor(id, dtype.Float32, 1, 8, 8, 4)
}

func record(id uint64, kind op.Kind, out uint64, ins ...uint64) *op.Op {
	o := op.New(id, kind, "")
	for _, in := range ins {
		o.AddInputs(tensor(in))
	}
	return o.AddOutputs(tensor(out))
}

func hardTanh(id uint64, out, in uint64, lo, hi float64) *op.Op {
	return record(id, op.HardTanh, out, in).
		SetAttr("min", cty.NumberFloatVal(lo)).
		SetAttr("max", cty.NumberFloatVal(hi))
}

type fused struct {
	Kind    op.Kind
	Members []graph.NodeID
}

type passTest struct {
	name string
	pass string
	ops  []*op.Op
	want []fused
}

func runPassTests(t *testing.T, tests []passTest) {
	reg := passes.Default()
	mgr := pass.NewManager(reg)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, ok := reg.Get(test.pass)
			if !ok {
				t.Fatalf("pass %s not registered", test.pass)
			}
			g := graph.New(graph.WithSchemas(nil))
			if err := g.AddOps(test.ops...); err != nil {
				t.Fatal(err)
			}
			if err := g.Build(); err != nil {
				t.Fatal(err)
			}
			parts, err := mgr.Apply(g, p)
			if err != nil {
				t.Fatal(err)
			}
			var got []fused
			for _, part := range parts {
				got = append(got, fused{Kind: part.Op.Kind, Members: part.Members})
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected partitions (-want +got):\n%s", diff)
			}
		})
	}
}

func members(ids ...graph.NodeID) []graph.NodeID {
	return ids
}

func TestConvolution(t *testing.T) {
	runPassTests(t, []passTest{
		{
			name: "conv_relu",
			pass: "conv_relu_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.ReLU, 3, 2),
			},
			want: []fused{{op.ConvRelu, members(0, 1)}},
		},
		{
			name: "conv_relu with a biased convolution",
			pass: "conv_relu_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				record(1, op.ReLU, 4, 3),
			},
		},
		{
			name: "conv_relu with two consumers",
			pass: "conv_relu_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.ReLU, 3, 2),
				record(2, op.ReLU, 4, 2),
			},
		},
		{
			name: "conv_bias_relu with a bias operator",
			pass: "conv_bias_relu_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.BiasAdd, 4, 2, 3),
				record(2, op.ReLU, 5, 4),
			},
			want: []fused{{op.ConvBiasRelu, members(0, 1, 2)}},
		},
		{
			name: "conv_bias_relu with a biased convolution",
			pass: "conv_bias_relu_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				record(1, op.ReLU, 4, 3),
			},
			want: []fused{{op.ConvBiasRelu, members(0, 1)}},
		},
		{
			name: "conv_bias with a biased convolution and a bias operator",
			pass: "conv_bias_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				record(1, op.BiasAdd, 5, 3, 4),
			},
			want: []fused{{op.ConvBias, members(0)}},
		},
		{
			name: "conv_sum in the first slot",
			pass: "conv_sum_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.Add, 4, 2, 3),
			},
			want: []fused{{op.ConvAdd, members(0, 1)}},
		},
		{
			name: "conv_sum in the second slot",
			pass: "conv_sum_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.Add, 4, 3, 2),
			},
			want: []fused{{op.ConvAdd, members(0, 1)}},
		},
		{
			name: "conv_bias_sum_sum",
			pass: "conv_bias_sum_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				record(1, op.Add, 5, 3, 4),
				record(2, op.Convolution, 6, 0, 1, 2),
				record(3, op.Add, 7, 6, 5),
			},
			want: []fused{
				{op.ConvBiasAdd, members(0, 1)},
				{op.ConvBiasAdd, members(2, 3)},
			},
		},
		{
			name: "conv_bias_relu6",
			pass: "conv_bias_relu6_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				hardTanh(1, 4, 3, 0, 6),
			},
			want: []fused{{op.ConvBiasRelu6, members(0, 1)}},
		},
		{
			name: "conv_bias_relu6 with another maximum",
			pass: "conv_bias_relu6_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				hardTanh(1, 4, 3, 0, 5),
			},
		},
		{
			name: "conv_bias_hardtanh",
			pass: "conv_bias_hardtanh_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				hardTanh(1, 4, 3, 0, 5),
			},
			want: []fused{{op.ConvBiasHardTanh, members(0, 1)}},
		},
		{
			name: "conv_bias_swish",
			pass: "conv_bias_swish_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.BiasAdd, 4, 2, 3),
				record(2, op.Sigmoid, 5, 4),
				record(3, op.Multiply, 6, 5, 4),
			},
			want: []fused{{op.ConvBiasSwish, members(0, 1, 2, 3)}},
		},
		{
			name: "conv_bias_swish with swapped operands",
			pass: "conv_bias_swish_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				record(1, op.Sigmoid, 4, 3),
				record(2, op.Multiply, 5, 3, 4),
			},
			want: []fused{{op.ConvBiasSwish, members(0, 1, 2)}},
		},
		{
			name: "conv_bn",
			pass: "conv_bn_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.BatchNormInference, 7, 2, 3, 4, 5, 6),
			},
			want: []fused{{op.ConvBn, members(0, 1)}},
		},
		{
			name: "conv_bn with a biased convolution",
			pass: "conv_bn_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				record(1, op.BatchNormInference, 8, 3, 4, 5, 6, 7),
			},
		},
		{
			name: "conv_bn with a branching convolution",
			pass: "conv_bn_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.BatchNormInference, 7, 2, 3, 4, 5, 6),
				record(2, op.ReLU, 8, 2),
			},
		},
		{
			name: "conv_bias_bn_sum_relu",
			pass: "conv_bias_bn_sum_relu_fusion",
			ops: []*op.Op{
				record(0, op.Convolution, 3, 0, 1, 2),
				record(1, op.BatchNormInference, 8, 3, 4, 5, 6, 7),
				record(2, op.Add, 10, 9, 8),
				record(3, op.ReLU, 11, 10),
			},
			want: []fused{{op.ConvBiasBnAddRelu, members(0, 1, 2, 3)}},
		},
		{
			name: "conv_bwd_f_biasadd_bwd",
			pass: "conv_bwd_f_biasadd_bwd_fusion",
			ops: []*op.Op{
				record(0, op.ConvolutionBackpropFilters, 2, 0, 1),
				record(1, op.BiasAddBackprop, 3, 2),
			},
			want: []fused{{op.ConvBwdFBiasAddBwd, members(0, 1)}},
		},
	})
}

func TestBatchNorm(t *testing.T) {
	runPassTests(t, []passTest{
		{
			name: "bn_relu",
			pass: "bn_relu_fusion",
			ops: []*op.Op{
				record(0, op.BatchNormInference, 5, 0, 1, 2, 3, 4),
				record(1, op.ReLU, 6, 5),
			},
			want: []fused{{op.BnRelu, members(0, 1)}},
		},
		{
			name: "bn_bwd_relu_bwd",
			pass: "bn_bwd_relu_bwd_fusion",
			ops: []*op.Op{
				record(0, op.ReLUBackprop, 2, 0, 1),
				record(1, op.BatchNormTrainingBackprop, 6, 2, 3, 4, 5),
			},
			want: []fused{{op.BnBwdReluBwd, members(0, 1)}},
		},
		{
			name: "bn_bwd_relu_bwd in the wrong slot",
			pass: "bn_bwd_relu_bwd_fusion",
			ops: []*op.Op{
				record(0, op.ReLUBackprop, 2, 0, 1),
				record(1, op.BatchNormTrainingBackprop, 6, 3, 2, 4, 5),
			},
		},
	})
}

func TestMatMul(t *testing.T) {
	runPassTests(t, []passTest{
		{
			name: "matmul_sum with a wildcard producer",
			pass: "matmul_sum_fusion",
			ops: []*op.Op{
				record(0, op.Wildcard, 3, 2),
				record(1, op.MatMul, 4, 0, 1),
				record(2, op.Add, 5, 4, 3),
			},
			want: []fused{{op.MatMulAdd, members(1, 2)}},
		},
		{
			name: "matmul_sum in the opposite slot order",
			pass: "matmul_sum_fusion",
			ops: []*op.Op{
				record(0, op.Wildcard, 3, 2),
				record(1, op.MatMul, 4, 0, 1),
				record(2, op.Add, 5, 3, 4),
			},
			want: []fused{{op.MatMulAdd, members(1, 2)}},
		},
		{
			name: "matmul_sum_gelu",
			pass: "matmul_sum_gelu_fusion",
			ops: []*op.Op{
				record(0, op.MatMul, 2, 0, 1),
				record(1, op.Add, 4, 2, 3),
				record(2, op.GELU, 5, 4),
			},
			want: []fused{{op.MatMulAddGelu, members(0, 1, 2)}},
		},
		{
			name: "matmul_bias with a bias operator",
			pass: "matmul_bias_fusion",
			ops: []*op.Op{
				record(0, op.MatMul, 2, 0, 1),
				record(1, op.BiasAdd, 4, 2, 3),
			},
			want: []fused{{op.MatMulBias, members(0, 1)}},
		},
		{
			name: "matmul_bias with a biased matmul",
			pass: "matmul_bias_fusion",
			ops: []*op.Op{
				record(0, op.MatMul, 3, 0, 1, 2),
			},
			want: []fused{{op.MatMulBias, members(0)}},
		},
		{
			name: "matmul_bias_swish",
			pass: "matmul_bias_swish_fusion",
			ops: []*op.Op{
				record(0, op.MatMul, 2, 0, 1),
				record(1, op.BiasAdd, 4, 2, 3),
				record(2, op.Sigmoid, 5, 4),
				record(3, op.Multiply, 6, 5, 4),
			},
			want: []fused{{op.MatMulBiasSwish, members(0, 1, 2, 3)}},
		},
		{
			name: "matmul_bias_relu6",
			pass: "matmul_bias_relu6_fusion",
			ops: []*op.Op{
				record(0, op.MatMul, 3, 0, 1, 2),
				hardTanh(1, 4, 3, 0, 6),
			},
			want: []fused{{op.MatMulBiasRelu6, members(0, 1)}},
		},
		{
			name: "matmul_bias_sum_relu",
			pass: "matmul_bias_sum_relu_fusion",
			ops: []*op.Op{
				record(0, op.MatMul, 2, 0, 1),
				record(1, op.BiasAdd, 4, 2, 3),
				record(2, op.Add, 6, 5, 4),
				record(3, op.ReLU, 7, 6),
			},
			want: []fused{{op.MatMulBiasAddRelu, members(0, 1, 2, 3)}},
		},
		{
			name: "relu then matmul",
			pass: "matmul_relu_fusion",
			ops: []*op.Op{
				record(0, op.ReLU, 1, 0),
				record(1, op.MatMul, 3, 1, 2),
			},
		},
		{
			name: "matmul sharing its weight",
			pass: "matmul_relu_fusion",
			ops: []*op.Op{
				record(0, op.MatMul, 2, 0, 1),
				record(1, op.ReLU, 3, 2),
				record(2, op.MatMul, 5, 4, 1),
				record(3, op.ReLU, 6, 5),
			},
			want: []fused{
				{op.MatMulRelu, members(0, 1)},
				{op.MatMulRelu, members(2, 3)},
			},
		},
	})
}

// geluErf returns 0.5*x*(1+erf(x/sqrt(2))) with x produced by a wildcard.
func geluErf() []*op.Op {
	return []*op.Op{
		record(0, op.Wildcard, 1, 0),
		record(1, op.Divide, 3, 1, 2),
		record(2, op.Erf, 4, 3),
		record(3, op.Add, 6, 4, 5),
		record(4, op.Multiply, 7, 6, 1),
		record(5, op.Multiply, 9, 7, 8),
	}
}

// geluTanh returns 0.5*x*(1+tanh(sqrt(2/pi)*(x+0.044715*x^3))).
// The operands of both additions are swapped according to swapFirst and swapSecond.
func geluTanh(swapFirst, swapSecond bool) []*op.Op {
	add := func(id, out, chained, side uint64, swap bool) *op.Op {
		if swap {
			return record(id, op.Add, out, side, chained)
		}
		return record(id, op.Add, out, chained, side)
	}
	return []*op.Op{
		record(0, op.Pow, 2, 0, 1),
		record(1, op.Multiply, 4, 2, 3),
		add(2, 5, 4, 0, swapFirst),
		record(3, op.Multiply, 7, 5, 6),
		record(4, op.Tanh, 8, 7),
		add(5, 10, 8, 9, swapSecond),
		record(6, op.Multiply, 11, 10, 0),
		record(7, op.Multiply, 13, 11, 12),
	}
}

func TestGELU(t *testing.T) {
	tests := []passTest{
		{
			name: "erf",
			pass: "gelu_fusion",
			ops:  geluErf(),
			want: []fused{{op.GELU, members(1, 2, 3, 4, 5)}},
		},
		{
			name: "erf with an external input",
			pass: "gelu_fusion",
			ops:  geluErf()[1:],
			want: []fused{{op.GELU, members(0, 1, 2, 3, 4)}},
		},
	}
	for _, swap := range []struct {
		name          string
		first, second bool
	}{
		{"tanh", false, false},
		{"tanh with the first addition swapped", true, false},
		{"tanh with the second addition swapped", false, true},
		{"tanh with both additions swapped", true, true},
	} {
		tests = append(tests, passTest{
			name: swap.name,
			pass: "gelu_fusion",
			ops:  geluTanh(swap.first, swap.second),
			want: []fused{{op.GELU, members(0, 1, 2, 3, 4, 5, 6, 7)}},
		})
	}
	runPassTests(t, tests)
}

func TestSingleOp(t *testing.T) {
	runPassTests(t, []passTest{
		{
			name: "conv_pass",
			pass: "conv_pass",
			ops: []*op.Op{
				record(0, op.Convolution, 2, 0, 1),
				record(1, op.Convolution, 4, 2, 3),
			},
			want: []fused{
				{op.Convolution, members(0)},
				{op.Convolution, members(1)},
			},
		},
		{
			name: "sum_pass",
			pass: "sum_pass",
			ops: []*op.Op{
				record(0, op.Add, 1, 0, 0),
			},
			want: []fused{{op.Add, members(0)}},
		},
	})
}

func TestDefault(t *testing.T) {
	reg := passes.Default()
	var want []string
	for _, group := range [][]*pass.Pass{
		passes.Convolution(),
		passes.BatchNorm(),
		passes.MatMul(),
		passes.Composite(),
		passes.SingleOp(),
	} {
		for _, p := range group {
			want = append(want, p.Name)
		}
	}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Errorf("unexpected pass order (-want +got):\n%s", diff)
	}
	for _, name := range []string{"conv_bias_relu6_fusion", "conv_bias_hardtanh_fusion"} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("pass %s not registered", name)
		}
	}
	for _, p := range passes.SingleOp() {
		if !p.SingleOp() {
			t.Errorf("pass %s matches more than one operator", p.Name)
		}
	}
}

func TestRun(t *testing.T) {
	conv := record(0, op.Convolution, 3, 0, 1, 2).
		SetAttr("strides", op.IntList(1, 1)).
		SetAttr("pads_begin", op.IntList(0, 0)).
		SetAttr("pads_end", op.IntList(0, 0)).
		SetAttr("dilations", op.IntList(1, 1))
	g := graph.New()
	if err := g.AddOps(
		conv,
		record(1, op.ReLU, 4, 3),
		record(2, op.MatMul, 6, 4, 5),
		record(3, op.Add, 8, 6, 7),
		record(4, op.GELU, 9, 8),
		record(5, op.Sigmoid, 10, 9),
	); err != nil {
		t.Fatal(err)
	}
	if err := g.Build(); err != nil {
		t.Fatal(err)
	}
	parts, err := pass.NewManager(passes.Default(), pass.WithSchemas(schema.Default())).Run(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	type result struct {
		Label   string
		Members []graph.NodeID
		Status  graph.Status
	}
	var got []result
	for _, p := range parts {
		got = append(got, result{Label: p.Label, Members: p.Members, Status: p.Status})
	}
	want := []result{
		{Label: "conv_bias_relu", Members: members(0, 1), Status: graph.Fused},
		{Label: "matmul_add_gelu", Members: members(2, 3, 4), Status: graph.Fused},
		{Label: "Sigmoid", Members: members(5), Status: graph.Unsupported},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected partitions (-want +got):\n%s", diff)
	}
}
