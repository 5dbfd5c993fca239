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

// Package passes provides the built-in fusion passes.
//
// Passes are registered in priority order: passes matching longer chains
// are registered before passes matching a subset of these chains.
package passes

import (
	"slices"

	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/pass"
	"github.com/gx-org/fuse/pattern"
)

// unit of a chain of operators, each consuming the first output
// of the previous unit in its first input slot.
type unit struct {
	kind op.Kind
	opts []pattern.NodeOption
	// side is true if the second input of the unit is a wildcard.
	side bool
}

func node(kind op.Kind, opts ...pattern.NodeOption) unit {
	return unit{kind: kind, opts: opts}
}

// binary returns a commutative unit with an unconstrained second operand.
func binary(kind op.Kind) unit {
	return unit{kind: kind, opts: []pattern.NodeOption{pattern.Commutative()}, side: true}
}

var (
	bias     = node(op.BiasAdd)
	bn       = node(op.BatchNormInference)
	sum      = binary(op.Add)
	mul      = binary(op.Multiply)
	relu     = node(op.ReLU)
	elu      = node(op.Elu)
	sigmoid  = node(op.Sigmoid)
	tanh     = node(op.Tanh)
	abs      = node(op.Abs)
	sqrt     = node(op.Sqrt)
	square   = node(op.Square)
	gelu     = node(op.GELU)
	hardtanh = node(op.HardTanh)
	relu6    = node(op.HardTanh, pattern.AttrFloat("min", 0), pattern.AttrFloat("max", 6))
)

type chainBuilder struct {
	b    *pattern.Builder
	last int
}

func newChain(name string, units ...unit) *chainBuilder {
	c := &chainBuilder{b: pattern.New(name), last: -1}
	return c.then(units...)
}

func (c *chainBuilder) then(units ...unit) *chainBuilder {
	for _, u := range units {
		cur := c.b.Op(u.kind, u.opts...)
		if c.last >= 0 {
			c.b.Connect(c.last, 0, cur, 0)
		}
		if u.side {
			c.b.Connect(c.b.Any(), 0, cur, 1)
		}
		c.last = cur
	}
	return c
}

func (c *chainBuilder) build() *pattern.Pattern {
	return c.b.MustBuild()
}

func chain(name string, units ...unit) *pattern.Pattern {
	return newChain(name, units...).build()
}

// withBias returns two alternatives: a chain starting with an operator
// followed by a bias addition, and the same chain starting with
// an operator taking the bias as its third input.
func withBias(name string, kind op.Kind, tail ...unit) []*pattern.Pattern {
	return []*pattern.Pattern{
		chain(name, slices.Concat([]unit{node(kind, pattern.Inputs(2)), bias}, tail)...),
		chain(name+"_biased", slices.Concat([]unit{node(kind, pattern.Inputs(3))}, tail)...),
	}
}

// swish returns a chain followed by x*sigmoid(x), x being the chain output.
func swish(name string, units ...unit) *pattern.Pattern {
	c := newChain(name, units...)
	x := c.last
	c.then(sigmoid)
	m := c.b.Op(op.Multiply, pattern.Commutative())
	c.b.Connect(c.last, 0, m, 0).Connect(x, 0, m, 1)
	return c.build()
}

func fusion(name string, kind op.Kind, patterns ...*pattern.Pattern) *pass.Pass {
	return &pass.Pass{
		Name:     name,
		Patterns: patterns,
		Fuse:     pass.FuseAs(kind),
	}
}

func single(name string, kind op.Kind) *pass.Pass {
	return &pass.Pass{
		Name:     name,
		Patterns: []*pattern.Pattern{chain(name, node(kind))},
		Fuse:     pass.Keep(),
	}
}

// Default returns a registry with all the built-in passes.
func Default() *pass.Registry {
	reg := pass.NewRegistry()
	for _, group := range [][]*pass.Pass{
		Convolution(),
		BatchNorm(),
		MatMul(),
		Composite(),
		SingleOp(),
	} {
		reg.MustRegister(group...)
	}
	return reg
}

// SingleOp returns passes mapping a single operator to a partition.
func SingleOp() []*pass.Pass {
	return []*pass.Pass{
		single("conv_pass", op.Convolution),
		single("matmul_pass", op.MatMul),
		single("sum_pass", op.Add),
		single("relu_pass", op.ReLU),
		single("bn_pass", op.BatchNormInference),
		single("avg_pool_pass", op.AvgPool),
		single("max_pool_pass", op.MaxPool),
	}
}
