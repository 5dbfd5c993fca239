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

package pattern

import (
	"slices"

	"github.com/gx-org/fuse/base/ordered"
	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
)

// binding of a pattern node to a graph node.
// Wildcards can also bind to a tensor external to the graph.
type binding struct {
	bound    bool
	node     graph.NodeID
	external bool
	tensor   uint64
}

// Match is an instance of a pattern in a graph.
type Match struct {
	pattern *Pattern
	binds   []binding
	swapped []bool
	members []graph.NodeID
	inputs  []op.Tensor
	outputs []op.Tensor
}

// Pattern returns the pattern of the match.
func (m *Match) Pattern() *Pattern {
	return m.pattern
}

// Nodes returns the graph nodes bound to the operator nodes of the pattern,
// in pattern order.
func (m *Match) Nodes() []graph.NodeID {
	return slices.Clone(m.members)
}

// Node returns the graph node bound to a pattern node.
// Returns false for wildcards bound to external tensors.
func (m *Match) Node(i int) (graph.NodeID, bool) {
	if i < 0 || i >= len(m.binds) {
		return 0, false
	}
	b := m.binds[i]
	if !b.bound || b.external {
		return 0, false
	}
	return b.node, true
}

// Swapped returns true if the input slots 0 and 1 of a commutative
// pattern node have been bound in reverse order.
func (m *Match) Swapped(i int) bool {
	return m.swapped[i]
}

// Inputs returns the tensors consumed by the match and not produced by it,
// deduplicated and in order of first use.
func (m *Match) Inputs() []op.Tensor {
	return slices.Clone(m.inputs)
}

// Outputs returns the tensors produced by the match and used outside of it
// or not used at all.
func (m *Match) Outputs() []op.Tensor {
	return slices.Clone(m.outputs)
}

// Find returns the instances of a pattern in a graph.
// Anchors are tried in ascending node order and the first binding found
// for an anchor is accepted. Instances do not share any node and do not
// include nodes already consumed by a partition.
func Find(g *graph.Graph, p *Pattern) []*Match {
	mt := &matcher{
		g:       g,
		p:       p,
		claimed: make(map[graph.NodeID]bool),
	}
	var matches []*Match
	anchor := &p.nodes[p.anchor]
	for _, n := range g.Nodes() {
		if n.Kind() != anchor.Kind || mt.unavailable(n.ID()) {
			continue
		}
		m := mt.matchAt(n.ID())
		if m == nil {
			continue
		}
		for _, id := range m.members {
			mt.claimed[id] = true
		}
		matches = append(matches, m)
	}
	return matches
}

type matcher struct {
	g       *graph.Graph
	p       *Pattern
	claimed map[graph.NodeID]bool

	binds   []binding
	swapped []bool
	used    map[graph.NodeID]bool
}

func (mt *matcher) unavailable(id graph.NodeID) bool {
	return mt.claimed[id] || mt.g.Consumed(id)
}

func (mt *matcher) matchAt(anchor graph.NodeID) *Match {
	mt.binds = make([]binding, len(mt.p.nodes))
	mt.swapped = make([]bool, len(mt.p.nodes))
	mt.used = make(map[graph.NodeID]bool)
	if !mt.try(0, []binding{{bound: true, node: anchor}}) {
		return nil
	}
	m := &Match{
		pattern: mt.p,
		binds:   mt.binds,
		swapped: mt.swapped,
	}
	for i, b := range m.binds {
		if !mt.p.nodes[i].IsWildcard() {
			m.members = append(m.members, b.node)
		}
	}
	m.inputs, m.outputs = boundary(mt.g, m.members)
	return m
}

// try binds step k of the plan to one of the candidates and
// recursively binds the rest of the plan.
func (mt *matcher) try(k int, candidates []binding) bool {
	st := mt.p.plan[k]
	pn := &mt.p.nodes[st.node]
	for _, cand := range candidates {
		if !pn.IsWildcard() {
			if mt.used[cand.node] || mt.unavailable(cand.node) {
				continue
			}
			if !pn.accept(mt.g.Node(cand.node).Op()) {
				continue
			}
		}
		for _, swap := range mt.swaps(st.node, cand) {
			mt.binds[st.node] = cand
			mt.swapped[st.node] = swap
			if !pn.IsWildcard() {
				mt.used[cand.node] = true
			}
			if mt.consistent(st.node) && mt.next(k+1) {
				return true
			}
			mt.binds[st.node] = binding{}
			mt.swapped[st.node] = false
			if !pn.IsWildcard() {
				delete(mt.used, cand.node)
			}
		}
	}
	return false
}

func (mt *matcher) next(k int) bool {
	if k == len(mt.p.plan) {
		return mt.gated()
	}
	st := mt.p.plan[k]
	return mt.try(k, mt.candidates(st))
}

func (mt *matcher) swaps(node int, b binding) []bool {
	pn := &mt.p.nodes[node]
	if !pn.Commutative || b.external {
		return []bool{false}
	}
	if mt.g.Node(b.node).NumInputs() < 2 {
		return []bool{false}
	}
	return []bool{false, true}
}

// slot returns the graph input slot bound to a pattern input slot.
func (mt *matcher) slot(node, inSlot int) int {
	if mt.swapped[node] && inSlot < 2 {
		return 1 - inSlot
	}
	return inSlot
}

// candidates returns the bindings to try for a plan step given the node bound
// at the other end of the step edge.
func (mt *matcher) candidates(st step) []binding {
	e := mt.p.edges[st.via]
	if e.From == st.node {
		// The step node produces a tensor consumed by a bound node.
		to := mt.binds[e.To]
		n := mt.g.Node(to.node)
		slot := mt.slot(e.To, e.InSlot)
		if slot >= n.NumInputs() {
			return nil
		}
		if p, ok := n.Producer(slot); ok {
			return []binding{{bound: true, node: p.Node}}
		}
		if !mt.p.nodes[st.node].IsWildcard() {
			return nil
		}
		return []binding{{bound: true, external: true, tensor: n.Inputs()[slot].ID}}
	}
	// The step node consumes a tensor produced by a bound node.
	uses := mt.g.Node(mt.binds[e.From].node).Consumers(e.OutSlot)
	var cands []binding
	for _, u := range uses {
		if len(cands) > 0 && cands[len(cands)-1].node == u.Node {
			continue
		}
		cands = append(cands, binding{bound: true, node: u.Node})
	}
	return cands
}

// consistent checks all the edges between a node and other bound nodes.
func (mt *matcher) consistent(node int) bool {
	for _, ei := range mt.p.touching[node] {
		e := mt.p.edges[ei]
		if !mt.binds[e.From].bound || !mt.binds[e.To].bound {
			continue
		}
		if !mt.connected(e) {
			return false
		}
	}
	return true
}

// connected returns true if the graph nodes bound to an edge endpoints are connected.
func (mt *matcher) connected(e Edge) bool {
	from, to := mt.binds[e.From], mt.binds[e.To]
	if to.external {
		// External tensors consume nothing.
		return false
	}
	toNode := mt.g.Node(to.node)
	if mt.p.nodes[e.To].IsWildcard() {
		// Wildcard consumers can use the tensor in any of their slots.
		for slot := range toNode.NumInputs() {
			if mt.feeds(from, e.OutSlot, toNode, slot) {
				return true
			}
		}
		return false
	}
	slot := mt.slot(e.To, e.InSlot)
	if slot >= toNode.NumInputs() {
		return false
	}
	return mt.feeds(from, e.OutSlot, toNode, slot)
}

func (mt *matcher) feeds(from binding, outSlot int, to *graph.Node, inSlot int) bool {
	p, ok := to.Producer(inSlot)
	if from.external {
		return !ok && to.Inputs()[inSlot].ID == from.tensor
	}
	return ok && p.Node == from.node && p.Slot == outSlot
}

// gated checks that tensors flowing between operator nodes of the match
// are not used outside of the match, unless the edge is shared.
func (mt *matcher) gated() bool {
	for _, e := range mt.p.edges {
		if e.Shared || mt.p.nodes[e.From].IsWildcard() || mt.p.nodes[e.To].IsWildcard() {
			continue
		}
		from := mt.g.Node(mt.binds[e.From].node)
		for _, u := range from.Consumers(e.OutSlot) {
			if !mt.used[u.Node] {
				return false
			}
		}
	}
	return true
}

// boundary returns the input and output tensors of a set of nodes.
func boundary(g *graph.Graph, members []graph.NodeID) (ins, outs []op.Tensor) {
	in := make(map[graph.NodeID]bool, len(members))
	for _, id := range members {
		in[id] = true
	}
	seen := ordered.NewSet[uint64]()
	for _, id := range members {
		n := g.Node(id)
		for slot, t := range n.Inputs() {
			if p, ok := n.Producer(slot); ok && in[p.Node] {
				continue
			}
			if seen.Add(t.ID) {
				ins = append(ins, t)
			}
		}
	}
	for _, id := range members {
		n := g.Node(id)
		for slot, t := range n.Outputs() {
			uses := n.Consumers(slot)
			external := len(uses) == 0 || slices.ContainsFunc(uses, func(u graph.Use) bool {
				return !in[u.Node]
			})
			if external {
				outs = append(outs, t)
			}
		}
	}
	return ins, outs
}

// Boundary returns the input and output tensors of a set of nodes.
// Inputs are deduplicated and in order of first use.
func Boundary(g *graph.Graph, members []graph.NodeID) (ins, outs []op.Tensor) {
	return boundary(g, members)
}
