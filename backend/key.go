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

// Package backend compiles partitions into executables provided by kernel libraries.
package backend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/backend/shape"
	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
	"github.com/pkg/errors"
)

// ErrUnsupportedKind is returned when no kernel can execute a partition.
var ErrUnsupportedKind = errors.New("unsupported kind")

// Key identifies a kernel independently of the tensors it is applied to.
type Key struct {
	Kind    op.Kind
	Attrs   op.Attributes
	Inputs  []shape.Shape
	Outputs []shape.Shape
}

func shapes(ts []op.Tensor) []shape.Shape {
	ss := make([]shape.Shape, len(ts))
	for i, t := range ts {
		ss[i] = shape.Shape{
			DType:       t.Shape.DType,
			AxisLengths: slices.Clone(t.Shape.AxisLengths),
		}
	}
	return ss
}

// KeyOf returns the kernel key of a partition.
func KeyOf(p *graph.Partition) Key {
	return Key{
		Kind:    p.Op.Kind,
		Attrs:   p.Op.Attrs.Clone(),
		Inputs:  shapes(p.Inputs),
		Outputs: shapes(p.Outputs),
	}
}

func writeShapes(s *strings.Builder, ss []shape.Shape) {
	s.WriteString("(")
	for i, sh := range ss {
		if i > 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(s, "%s%v", sh.DType.String(), sh.AxisLengths)
	}
	s.WriteString(")")
}

// Fingerprint returns a string equal for all the keys sharing the same kernel.
func (k Key) Fingerprint() string {
	var s strings.Builder
	s.WriteString(k.Kind.String())
	s.WriteString(k.Attrs.String())
	writeShapes(&s, k.Inputs)
	s.WriteString("->")
	writeShapes(&s, k.Outputs)
	return s.String()
}

func (k Key) String() string {
	return k.Fingerprint()
}
