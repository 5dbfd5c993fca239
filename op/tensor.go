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

import (
	"fmt"
	"slices"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
)

// UnknownAxis is the length of an axis not known when the graph is built.
const UnknownAxis = -1

// Tensor describes a value flowing between operators.
// Two tensors with the same ID refer to the same value.
type Tensor struct {
	ID    uint64
	Shape shape.Shape
}

// NewTensor returns a tensor descriptor given its identifier, data type and axis lengths.
func NewTensor(id uint64, dt dtype.DataType, axes ...int) Tensor {
	return Tensor{
		ID: id,
		Shape: shape.Shape{
			DType:       dt,
			AxisLengths: slices.Clone(axes),
		},
	}
}

// DType returns the element type of the tensor.
func (t Tensor) DType() dtype.DataType {
	return t.Shape.DType
}

// Rank returns the number of axes of the tensor.
func (t Tensor) Rank() int {
	return len(t.Shape.AxisLengths)
}

// IsKnown returns true if the length of all the axes are known.
func (t Tensor) IsKnown() bool {
	return !slices.Contains(t.Shape.AxisLengths, UnknownAxis)
}

// Clone returns a copy of the descriptor that does not share its axis lengths.
func (t Tensor) Clone() Tensor {
	t.Shape.AxisLengths = slices.Clone(t.Shape.AxisLengths)
	return t
}

func (t Tensor) String() string {
	return fmt.Sprintf("%%%d:%s%v", t.ID, t.Shape.DType.String(), t.Shape.AxisLengths)
}

// IDs returns the identifiers of a list of tensors.
func IDs(ts []Tensor) []uint64 {
	ids := make([]uint64, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}
