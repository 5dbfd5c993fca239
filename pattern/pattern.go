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

// Package pattern describes subgraphs to look for in an operator graph
// and finds their instances.
package pattern

import (
	"fmt"
	"strings"

	"github.com/gx-org/fuse/op"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// AnyArity is the arity of pattern nodes accepting any number of inputs or outputs.
const AnyArity = -1

// Predicate on operator records bound to a pattern node.
type Predicate func(*op.Op) bool

// Node of a pattern.
type Node struct {
	Kind op.Kind
	// Inputs is the exact number of inputs or AnyArity.
	Inputs int
	// MinInputs is the minimum number of inputs.
	MinInputs int
	// Outputs is the exact number of outputs or AnyArity.
	Outputs int
	// Commutative nodes can bind their input slots 0 and 1 in any order.
	Commutative bool
	Predicates  []Predicate
}

// IsWildcard returns true if the node matches any graph node.
func (n *Node) IsWildcard() bool {
	return n.Kind == op.Wildcard
}

func (n *Node) accept(o *op.Op) bool {
	if o.Kind != n.Kind {
		return false
	}
	if n.Inputs != AnyArity && len(o.Inputs) != n.Inputs {
		return false
	}
	if len(o.Inputs) < n.MinInputs {
		return false
	}
	if n.Outputs != AnyArity && len(o.Outputs) != n.Outputs {
		return false
	}
	for _, pred := range n.Predicates {
		if !pred(o) {
			return false
		}
	}
	return true
}

// Edge connects the output slot of a pattern node to the input slot of another.
type Edge struct {
	From, OutSlot int
	To, InSlot    int
	// Shared edges accept tensors consumed outside of the match.
	Shared bool
}

func (e Edge) String() string {
	s := fmt.Sprintf("%d:%d->%d:%d", e.From, e.OutSlot, e.To, e.InSlot)
	if e.Shared {
		s += "(shared)"
	}
	return s
}

type step struct {
	node int
	// via is the index of the edge connecting node to a node bound in a previous step.
	via int
}

// Pattern is an immutable template graph.
type Pattern struct {
	name   string
	nodes  []Node
	edges  []Edge
	anchor int

	// touching[i] lists the edges with node i as one of its endpoints.
	touching [][]int
	plan     []step
}

// Name of the pattern.
func (p *Pattern) Name() string {
	return p.name
}

// NumNodes returns the number of nodes, wildcards included.
func (p *Pattern) NumNodes() int {
	return len(p.nodes)
}

// Node returns a node of the pattern.
func (p *Pattern) Node(i int) Node {
	return p.nodes[i]
}

// Edges returns the edges of the pattern.
func (p *Pattern) Edges() []Edge {
	return append([]Edge(nil), p.edges...)
}

// Anchor returns the index of the first non-wildcard node.
func (p *Pattern) Anchor() int {
	return p.anchor
}

// NumOps returns the number of non-wildcard nodes.
func (p *Pattern) NumOps() int {
	num := 0
	for i := range p.nodes {
		if !p.nodes[i].IsWildcard() {
			num++
		}
	}
	return num
}

func (p *Pattern) String() string {
	var s strings.Builder
	s.WriteString(p.name)
	s.WriteString("[")
	for i, n := range p.nodes {
		if i > 0 {
			s.WriteString(" ")
		}
		fmt.Fprintf(&s, "%d:%s", i, n.Kind)
	}
	s.WriteString("]")
	for _, e := range p.edges {
		s.WriteString(" ")
		s.WriteString(e.String())
	}
	return s.String()
}

// NodeOption configures a pattern node.
type NodeOption func(*Node)

// Inputs requires an exact number of inputs.
func Inputs(n int) NodeOption {
	return func(node *Node) {
		node.Inputs = n
	}
}

// MinInputs requires a minimum number of inputs.
func MinInputs(n int) NodeOption {
	return func(node *Node) {
		node.MinInputs = n
	}
}

// Outputs requires an exact number of outputs.
func Outputs(n int) NodeOption {
	return func(node *Node) {
		node.Outputs = n
	}
}

// Commutative lets the node bind its input slots 0 and 1 in any order.
func Commutative() NodeOption {
	return func(node *Node) {
		node.Commutative = true
	}
}

// Where adds a predicate on the records bound to the node.
func Where(pred Predicate) NodeOption {
	return func(node *Node) {
		node.Predicates = append(node.Predicates, pred)
	}
}

// AttrEquals requires an attribute to be equal to a value.
func AttrEquals(name string, want cty.Value) NodeOption {
	return Where(func(o *op.Op) bool {
		got, ok := o.Attrs[name]
		if !ok || !got.IsWhollyKnown() || !want.IsWhollyKnown() {
			return false
		}
		if !got.Type().Equals(want.Type()) {
			return false
		}
		return got.Equals(want).True()
	})
}

// AttrFloat requires a numerical attribute to be equal to a value.
func AttrFloat(name string, want float64) NodeOption {
	return Where(func(o *op.Op) bool {
		got, ok := o.Attrs.Float(name)
		return ok && got == want
	})
}

// EdgeOption configures a pattern edge.
type EdgeOption func(*Edge)

// Shared lets the tensor of the edge be consumed outside of the match.
func Shared() EdgeOption {
	return func(e *Edge) {
		e.Shared = true
	}
}

// Builder builds a pattern.
type Builder struct {
	p *Pattern
}

// New returns a builder for a pattern.
func New(name string) *Builder {
	return &Builder{p: &Pattern{name: name, anchor: -1}}
}

// Op adds a node matching a kind and returns its index.
func (b *Builder) Op(kind op.Kind, opts ...NodeOption) int {
	n := Node{Kind: kind, Inputs: AnyArity, Outputs: AnyArity}
	for _, opt := range opts {
		opt(&n)
	}
	b.p.nodes = append(b.p.nodes, n)
	return len(b.p.nodes) - 1
}

// Any adds a wildcard node and returns its index.
func (b *Builder) Any() int {
	return b.Op(op.Wildcard)
}

// Connect the output slot of a node to the input slot of another.
func (b *Builder) Connect(from, outSlot, to, inSlot int, opts ...EdgeOption) *Builder {
	e := Edge{From: from, OutSlot: outSlot, To: to, InSlot: inSlot}
	for _, opt := range opts {
		opt(&e)
	}
	b.p.edges = append(b.p.edges, e)
	return b
}

// Build checks the pattern and returns it.
// The builder must not be used after Build has been called.
func (b *Builder) Build() (*Pattern, error) {
	p := b.p
	b.p = nil
	if err := p.check(); err != nil {
		return nil, errors.Wrapf(err, "invalid pattern %s", p.name)
	}
	return p, nil
}

// MustBuild builds the pattern and panics on error.
func (b *Builder) MustBuild() *Pattern {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) check() error {
	for i := range p.nodes {
		if !p.nodes[i].IsWildcard() {
			p.anchor = i
			break
		}
	}
	if p.anchor < 0 {
		return errors.Errorf("no operator node")
	}
	for i, n := range p.nodes {
		if !n.Kind.IsValid() {
			return errors.Errorf("node %d has an invalid kind", i)
		}
		if n.IsWildcard() && (len(n.Predicates) > 0 || n.Commutative) {
			return errors.Errorf("wildcard node %d cannot be constrained", i)
		}
	}
	p.touching = make([][]int, len(p.nodes))
	inSlots := make(map[[2]int]bool)
	for ei, e := range p.edges {
		if e.From < 0 || e.From >= len(p.nodes) || e.To < 0 || e.To >= len(p.nodes) {
			return errors.Errorf("edge %s: node out of range", e)
		}
		if e.OutSlot < 0 || e.InSlot < 0 {
			return errors.Errorf("edge %s: negative slot", e)
		}
		if e.From == e.To {
			return errors.Errorf("edge %s: self loop", e)
		}
		from, to := &p.nodes[e.From], &p.nodes[e.To]
		if from.IsWildcard() && to.IsWildcard() {
			return errors.Errorf("edge %s connects two wildcards", e)
		}
		if to.Inputs != AnyArity && e.InSlot >= to.Inputs {
			return errors.Errorf("edge %s: node %d has only %d inputs", e, e.To, to.Inputs)
		}
		if from.Outputs != AnyArity && e.OutSlot >= from.Outputs {
			return errors.Errorf("edge %s: node %d has only %d outputs", e, e.From, from.Outputs)
		}
		slot := [2]int{e.To, e.InSlot}
		if inSlots[slot] {
			return errors.Errorf("edge %s: input slot already connected", e)
		}
		inSlots[slot] = true
		p.touching[e.From] = append(p.touching[e.From], ei)
		p.touching[e.To] = append(p.touching[e.To], ei)
	}
	return p.buildPlan()
}

// buildPlan orders the nodes such that every node after the anchor
// is connected to a node bound before: operator nodes are expanded
// in breadth-first order, wildcards are leaves.
func (p *Pattern) buildPlan() error {
	planned := make([]bool, len(p.nodes))
	p.plan = []step{{node: p.anchor, via: -1}}
	planned[p.anchor] = true
	for k := 0; k < len(p.plan); k++ {
		cur := p.plan[k].node
		if p.nodes[cur].IsWildcard() {
			continue
		}
		for _, ei := range p.touching[cur] {
			e := p.edges[ei]
			next := e.To
			if next == cur {
				next = e.From
			}
			if planned[next] {
				continue
			}
			planned[next] = true
			p.plan = append(p.plan, step{node: next, via: ei})
		}
	}
	for i, ok := range planned {
		if !ok {
			return errors.Errorf("node %d (%s) is not connected to node %d (%s)", i, p.nodes[i].Kind, p.anchor, p.nodes[p.anchor].Kind)
		}
	}
	return nil
}
