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

package passes

import (
	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/pass"
	"github.com/gx-org/fuse/pattern"
)

func matmul() unit {
	return node(op.MatMul, pattern.Inputs(2))
}

func matmulBias(name string, tail ...unit) []*pattern.Pattern {
	return withBias(name, op.MatMul, tail...)
}

// MatMul returns the passes fusing matrix multiplications with the operators consuming their output.
func MatMul() []*pass.Pass {
	return []*pass.Pass{
		fusion("matmul_bias_sum_relu_fusion", op.MatMulBiasAddRelu, matmulBias("matmul_bias_sum_relu", sum, relu)...),
		fusion("matmul_bias_sum_fusion", op.MatMulBiasAdd, matmulBias("matmul_bias_sum", sum)...),
		fusion("matmul_bias_swish_fusion", op.MatMulBiasSwish,
			swish("matmul_bias_swish", matmul(), bias),
			swish("matmul_bias_swish_biased", node(op.MatMul, pattern.Inputs(3))),
		),
		fusion("matmul_bias_bn_fusion", op.MatMulBiasBn, matmulBias("matmul_bias_bn", bn)...),
		fusion("matmul_bias_relu6_fusion", op.MatMulBiasRelu6, matmulBias("matmul_bias_relu6", relu6)...),
		fusion("matmul_bias_hardtanh_fusion", op.MatMulBiasHardTanh, matmulBias("matmul_bias_hardtanh", hardtanh)...),
		fusion("matmul_bias_elu_fusion", op.MatMulBiasElu, matmulBias("matmul_bias_elu", elu)...),
		fusion("matmul_bias_relu_fusion", op.MatMulBiasRelu, matmulBias("matmul_bias_relu", relu)...),
		fusion("matmul_bias_sigmoid_fusion", op.MatMulBiasSigmoid, matmulBias("matmul_bias_sigmoid", sigmoid)...),
		fusion("matmul_bias_fusion", op.MatMulBias, matmulBias("matmul_bias")...),
		fusion("matmul_sum_gelu_fusion", op.MatMulAddGelu, chain("matmul_sum_gelu", matmul(), sum, gelu)),
		fusion("matmul_sum_relu_fusion", op.MatMulAddRelu, chain("matmul_sum_relu", matmul(), sum, relu)),
		fusion("matmul_sum_fusion", op.MatMulAdd, chain("matmul_sum", matmul(), sum)),
		fusion("matmul_relu_fusion", op.MatMulRelu, chain("matmul_relu", matmul(), relu)),
		fusion("matmul_elu_fusion", op.MatMulElu, chain("matmul_elu", matmul(), elu)),
		fusion("matmul_sigmoid_fusion", op.MatMulSigmoid, chain("matmul_sigmoid", matmul(), sigmoid)),
		fusion("matmul_hardtanh_fusion", op.MatMulHardTanh, chain("matmul_hardtanh", matmul(), hardtanh)),
		fusion("matmul_gelu_fusion", op.MatMulGelu, chain("matmul_gelu", matmul(), gelu)),
	}
}
