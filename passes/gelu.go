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

// geluErf matches 0.5*x*(1+erf(x/sqrt(2))).
func geluErf() *pattern.Pattern {
	c := newChain("gelu_erf")
	x := c.b.Any()
	c.then(node(op.Divide))
	c.b.Connect(x, 0, c.last, 0)
	return c.then(node(op.Erf), sum, mul, mul).build()
}

// geluTanh matches 0.5*x*(1+tanh(sqrt(2/pi)*(x+0.044715*x^3))).
func geluTanh() *pattern.Pattern {
	c := newChain("gelu_tanh")
	x := c.b.Any()
	c.then(node(op.Pow))
	c.b.Connect(x, 0, c.last, 0)
	return c.then(mul, sum, mul, tanh, sum, mul, mul).build()
}

// Composite returns the passes recognizing operators decomposed into elementwise operations.
func Composite() []*pass.Pass {
	return []*pass.Pass{
		fusion("gelu_fusion", op.GELU, geluErf(), geluTanh()),
	}
}
