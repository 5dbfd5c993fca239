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

func conv(inputs int) unit {
	return node(op.Convolution, pattern.Inputs(inputs))
}

// convBias returns the alternatives of a convolution with a bias followed by tail.
func convBias(name string, tail ...unit) []*pattern.Pattern {
	return withBias(name, op.Convolution, tail...)
}

// Convolution returns the passes fusing convolutions with the operators consuming their output.
func Convolution() []*pass.Pass {
	return []*pass.Pass{
		fusion("conv_bias_bn_sum_relu_fusion", op.ConvBiasBnAddRelu, convBias("conv_bias_bn_sum_relu", bn, sum, relu)...),
		fusion("conv_bn_sum_relu_fusion", op.ConvBnAddRelu, chain("conv_bn_sum_relu", conv(2), bn, sum, relu)),
		fusion("conv_bias_bn_relu_fusion", op.ConvBiasBnRelu, convBias("conv_bias_bn_relu", bn, relu)...),
		fusion("conv_bias_bn_sum_fusion", op.ConvBiasBnAdd, convBias("conv_bias_bn_sum", bn, sum)...),
		fusion("conv_bn_relu_fusion", op.ConvBnRelu, chain("conv_bn_relu", conv(2), bn, relu)),
		fusion("conv_bn_sum_fusion", op.ConvBnAdd, chain("conv_bn_sum", conv(2), bn, sum)),
		fusion("conv_bias_bn_fusion", op.ConvBiasBn, convBias("conv_bias_bn", bn)...),
		fusion("conv_bias_sum_relu6_fusion", op.ConvBiasAddRelu6, convBias("conv_bias_sum_relu6", sum, relu6)...),
		fusion("conv_bias_sum_elu_fusion", op.ConvBiasAddElu, convBias("conv_bias_sum_elu", sum, elu)...),
		fusion("conv_bias_sum_relu_fusion", op.ConvBiasAddRelu, convBias("conv_bias_sum_relu", sum, relu)...),
		fusion("conv_bias_sum_fusion", op.ConvBiasAdd, convBias("conv_bias_sum", sum)...),
		fusion("conv_bias_swish_fusion", op.ConvBiasSwish,
			swish("conv_bias_swish", conv(2), bias),
			swish("conv_bias_swish_biased", conv(3)),
		),
		fusion("conv_bias_relu6_fusion", op.ConvBiasRelu6, convBias("conv_bias_relu6", relu6)...),
		fusion("conv_bias_hardtanh_fusion", op.ConvBiasHardTanh, convBias("conv_bias_hardtanh", hardtanh)...),
		fusion("conv_bias_elu_fusion", op.ConvBiasElu, convBias("conv_bias_elu", elu)...),
		fusion("conv_bias_relu_fusion", op.ConvBiasRelu, convBias("conv_bias_relu", relu)...),
		fusion("conv_bias_sigmoid_fusion", op.ConvBiasSigmoid, convBias("conv_bias_sigmoid", sigmoid)...),
		fusion("conv_bias_square_fusion", op.ConvBiasSquare, convBias("conv_bias_square", square)...),
		fusion("conv_bias_tanh_fusion", op.ConvBiasTanh, convBias("conv_bias_tanh", tanh)...),
		fusion("conv_bias_abs_fusion", op.ConvBiasAbs, convBias("conv_bias_abs", abs)...),
		fusion("conv_bias_sqrt_fusion", op.ConvBiasSqrt, convBias("conv_bias_sqrt", sqrt)...),
		fusion("conv_sum_relu6_fusion", op.ConvAddRelu6, chain("conv_sum_relu6", conv(2), sum, relu6)),
		fusion("conv_sum_elu_fusion", op.ConvAddElu, chain("conv_sum_elu", conv(2), sum, elu)),
		fusion("conv_sum_relu_fusion", op.ConvAddRelu, chain("conv_sum_relu", conv(2), sum, relu)),
		fusion("conv_sum_fusion", op.ConvAdd, chain("conv_sum", conv(2), sum)),
		fusion("conv_bn_fusion", op.ConvBn, chain("conv_bn", conv(2), bn)),
		fusion("conv_relu_fusion", op.ConvRelu, chain("conv_relu", conv(2), relu)),
		fusion("conv_bias_fusion", op.ConvBias, convBias("conv_bias")...),
		fusion("conv_bwd_f_biasadd_bwd_fusion", op.ConvBwdFBiasAddBwd,
			chain("conv_bwd_f_biasadd_bwd", node(op.ConvolutionBackpropFilters), node(op.BiasAddBackprop)),
		),
	}
}

// BatchNorm returns the passes fusing batch normalizations.
func BatchNorm() []*pass.Pass {
	return []*pass.Pass{
		fusion("bn_relu_fusion", op.BnRelu, chain("bn_relu", bn, relu)),
		fusion("bn_bwd_relu_bwd_fusion", op.BnBwdReluBwd,
			chain("bn_bwd_relu_bwd", node(op.ReLUBackprop), node(op.BatchNormTrainingBackprop)),
		),
	}
}
