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

package op

import "fmt"

// Kind of an operator.
type Kind uint

// External operator kinds, as produced by a calling framework.
const (
	Invalid Kind = iota

	Abs
	Add
	AvgPool
	AvgPoolBackprop
	BatchNormInference
	BatchNormForwardTraining
	BatchNormTrainingBackprop
	BiasAdd
	BiasAddBackprop
	Clamp
	ClampBackprop
	Concat
	Convolution
	ConvolutionBackpropData
	ConvolutionBackpropFilters
	Divide
	Elu
	EluBackprop
	End
	Erf
	Exp
	GELU
	GELUBackprop
	HardTanh
	HardTanhBackprop
	Interpolate
	LayerNorm
	LayerNormBackprop
	Log
	LogSoftmax
	LogSoftmaxBackprop
	MatMul
	Maximum
	MaxPool
	MaxPoolBackprop
	Minimum
	Multiply
	Pow
	ReduceSum
	ReLU
	ReLUBackprop
	Reshape
	Round
	Sigmoid
	SigmoidBackprop
	SoftMax
	SoftMaxBackprop
	SoftPlus
	Sqrt
	Square
	Tanh
	Transpose
	Wildcard

	// lastExternal is the last kind a framework can produce.
	lastExternal
)

// Internal kinds, produced by fusion passes.
const (
	BnRelu Kind = iota + lastExternal + 1
	BnBwdReluBwd

	ConvAdd
	ConvAddElu
	ConvAddRelu
	ConvAddRelu6
	ConvBias
	ConvBiasAbs
	ConvBiasAdd
	ConvBiasAddElu
	ConvBiasAddRelu
	ConvBiasAddRelu6
	ConvBiasBn
	ConvBiasBnAdd
	ConvBiasBnAddRelu
	ConvBiasBnRelu
	ConvBiasElu
	ConvBiasHardTanh
	ConvBiasRelu
	ConvBiasRelu6
	ConvBiasSigmoid
	ConvBiasSqrt
	ConvBiasSquare
	ConvBiasSwish
	ConvBiasTanh
	ConvBn
	ConvBnAdd
	ConvBnAddRelu
	ConvBnRelu
	ConvRelu
	ConvBwdFBiasAddBwd

	MatMulAdd
	MatMulAddGelu
	MatMulAddRelu
	MatMulBias
	MatMulBiasAdd
	MatMulBiasAddRelu
	MatMulBiasBn
	MatMulBiasElu
	MatMulBiasHardTanh
	MatMulBiasRelu
	MatMulBiasRelu6
	MatMulBiasSigmoid
	MatMulBiasSwish
	MatMulElu
	MatMulGelu
	MatMulHardTanh
	MatMulRelu
	MatMulSigmoid

	// lastInternal is one past the last valid kind.
	lastInternal
)

var kindNames = map[Kind]string{
	Abs:                        "Abs",
	Add:                        "Add",
	AvgPool:                    "AvgPool",
	AvgPoolBackprop:            "AvgPoolBackprop",
	BatchNormInference:         "BatchNormInference",
	BatchNormForwardTraining:   "BatchNormForwardTraining",
	BatchNormTrainingBackprop:  "BatchNormTrainingBackprop",
	BiasAdd:                    "BiasAdd",
	BiasAddBackprop:            "BiasAddBackprop",
	Clamp:                      "Clamp",
	ClampBackprop:              "ClampBackprop",
	Concat:                     "Concat",
	Convolution:                "Convolution",
	ConvolutionBackpropData:    "ConvolutionBackpropData",
	ConvolutionBackpropFilters: "ConvolutionBackpropFilters",
	Divide:                     "Divide",
	Elu:                        "Elu",
	EluBackprop:                "EluBackprop",
	End:                        "End",
	Erf:                        "Erf",
	Exp:                        "Exp",
	GELU:                       "GELU",
	GELUBackprop:               "GELUBackprop",
	HardTanh:                   "HardTanh",
	HardTanhBackprop:           "HardTanhBackprop",
	Interpolate:                "Interpolate",
	LayerNorm:                  "LayerNorm",
	LayerNormBackprop:          "LayerNormBackprop",
	Log:                        "Log",
	LogSoftmax:                 "LogSoftmax",
	LogSoftmaxBackprop:         "LogSoftmaxBackprop",
	MatMul:                     "MatMul",
	Maximum:                    "Maximum",
	MaxPool:                    "MaxPool",
	MaxPoolBackprop:            "MaxPoolBackprop",
	Minimum:                    "Minimum",
	Multiply:                   "Multiply",
	Pow:                        "Pow",
	ReduceSum:                  "ReduceSum",
	ReLU:                       "ReLU",
	ReLUBackprop:               "ReLUBackprop",
	Reshape:                    "Reshape",
	Round:                      "Round",
	Sigmoid:                    "Sigmoid",
	SigmoidBackprop:            "SigmoidBackprop",
	SoftMax:                    "SoftMax",
	SoftMaxBackprop:            "SoftMaxBackprop",
	SoftPlus:                   "SoftPlus",
	Sqrt:                       "Sqrt",
	Square:                     "Square",
	Tanh:                       "Tanh",
	Transpose:                  "Transpose",
	Wildcard:                   "Wildcard",

	BnRelu:             "bn_relu",
	BnBwdReluBwd:       "bn_bwd_relu_bwd",
	ConvAdd:            "conv_add",
	ConvAddElu:         "conv_add_elu",
	ConvAddRelu:        "conv_add_relu",
	ConvAddRelu6:       "conv_add_relu6",
	ConvBias:           "conv_bias",
	ConvBiasAbs:        "conv_bias_abs",
	ConvBiasAdd:        "conv_bias_add",
	ConvBiasAddElu:     "conv_bias_add_elu",
	ConvBiasAddRelu:    "conv_bias_add_relu",
	ConvBiasAddRelu6:   "conv_bias_add_relu6",
	ConvBiasBn:         "conv_bias_bn",
	ConvBiasBnAdd:      "conv_bias_bn_add",
	ConvBiasBnAddRelu:  "conv_bias_bn_add_relu",
	ConvBiasBnRelu:     "conv_bias_bn_relu",
	ConvBiasElu:        "conv_bias_elu",
	ConvBiasHardTanh:   "conv_bias_hardtanh",
	ConvBiasRelu:       "conv_bias_relu",
	ConvBiasRelu6:      "conv_bias_relu6",
	ConvBiasSigmoid:    "conv_bias_sigmoid",
	ConvBiasSqrt:       "conv_bias_sqrt",
	ConvBiasSquare:     "conv_bias_square",
	ConvBiasSwish:      "conv_bias_swish",
	ConvBiasTanh:       "conv_bias_tanh",
	ConvBn:             "conv_bn",
	ConvBnAdd:          "conv_bn_add",
	ConvBnAddRelu:      "conv_bn_add_relu",
	ConvBnRelu:         "conv_bn_relu",
	ConvRelu:           "conv_relu",
	ConvBwdFBiasAddBwd: "conv_bwd_f_biasadd_bwd",
	MatMulAdd:          "matmul_add",
	MatMulAddGelu:      "matmul_add_gelu",
	MatMulAddRelu:      "matmul_add_relu",
	MatMulBias:         "matmul_bias",
	MatMulBiasAdd:      "matmul_bias_add",
	MatMulBiasAddRelu:  "matmul_bias_add_relu",
	MatMulBiasBn:       "matmul_bias_bn",
	MatMulBiasElu:      "matmul_bias_elu",
	MatMulBiasHardTanh: "matmul_bias_hardtanh",
	MatMulBiasRelu:     "matmul_bias_relu",
	MatMulBiasRelu6:    "matmul_bias_relu6",
	MatMulBiasSigmoid:  "matmul_bias_sigmoid",
	MatMulBiasSwish:    "matmul_bias_swish",
	MatMulElu:          "matmul_elu",
	MatMulGelu:         "matmul_gelu",
	MatMulHardTanh:     "matmul_hardtanh",
	MatMulRelu:         "matmul_relu",
	MatMulSigmoid:      "matmul_sigmoid",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint(k))
}

// IsValid returns true if the kind is a known external or internal kind.
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsInternal returns true if the kind can only be produced by a fusion.
func (k Kind) IsInternal() bool {
	return k > lastExternal && k < lastInternal
}

// KindFromString returns the kind given its name.
func KindFromString(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Kinds returns all the valid kinds, external kinds first.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames))
	for k := Invalid + 1; k < lastInternal; k++ {
		if k.IsValid() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
