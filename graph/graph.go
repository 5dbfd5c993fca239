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

// Package graph stores operator records as a dataflow graph
// and tracks the partitions carved out of it.
package graph

import (
	"fmt"
	"slices"
	"strings"

	fusefmt "github.com/gx-org/fuse/base/fmt"
	"github.com/gx-org/fuse/base/uname"
	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/op/schema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Graph of operators.
type Graph struct {
	schemas schema.Table

	ops   []*op.Op
	opIDs map[uint64]bool

	built     bool
	nodes     []*Node
	producers map[uint64]Use
	consumers map[uint64][]Use
	topo      []NodeID

	parts  []*Partition
	labels *uname.Unique
}

// Option configures a graph.
type Option func(*Graph)

// WithSchemas sets the table used to apply defaults and verify records.
// A nil table disables verification.
func WithSchemas(tbl schema.Table) Option {
	return func(g *Graph) {
		g.schemas = tbl
	}
}

// New returns an empty graph verifying records with the default schemas.
func New(opts ...Option) *Graph {
	g := &Graph{
		schemas: schema.Default(),
		opIDs:   make(map[uint64]bool),
		labels:  uname.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Schemas returns the schema table of the graph.
func (g *Graph) Schemas() schema.Table {
	return g.schemas
}

func (g *Graph) verify(o *op.Op) error {
	if !o.Kind.IsValid() {
		return errors.Errorf("unknown kind %s", o.Kind)
	}
	if g.schemas == nil {
		return nil
	}
	s, ok := g.schemas.Lookup(o.Kind)
	if !ok {
		return nil
	}
	s.ApplyDefaults(o)
	return s.Check(o)
}

// AddOp adds a copy of an operator record to the graph.
// Adding a record with the identifier of a record already in the graph is a no-op.
// Build needs to be called again before the graph can be partitioned.
func (g *Graph) AddOp(o *op.Op) error {
	if o == nil {
		return errors.Wrapf(ErrInvalidOperator, "nil record")
	}
	if o.HasID() && g.opIDs[o.ID] {
		return nil
	}
	rec := o.Clone()
	if err := g.verify(rec); err != nil {
		return errors.Wrapf(ErrInvalidOperator, "%s: %v", o, err)
	}
	if rec.HasID() {
		g.opIDs[rec.ID] = true
	}
	g.ops = append(g.ops, rec)
	g.built = false
	return nil
}

// AddOps adds a list of records to the graph.
// Valid records are added even if some records are rejected.
func (g *Graph) AddOps(ops ...*op.Op) error {
	var errs error
	for _, o := range ops {
		errs = multierr.Append(errs, g.AddOp(o))
	}
	return errs
}

// Build (re)constructs the nodes and edges of the graph from its records.
// Any previous partition is discarded.
func (g *Graph) Build() error {
	g.built = false
	g.resetPartitions()
	g.nodes = make([]*Node, len(g.ops))
	g.producers = make(map[uint64]Use)
	g.consumers = make(map[uint64][]Use)
	g.topo = nil

	var errs error
	for i, o := range g.ops {
		n := &Node{
			id:        NodeID(i),
			op:        o,
			part:      NoPartition,
			producers: make([]*Use, len(o.Inputs)),
			consumers: make([][]Use, len(o.Outputs)),
		}
		g.nodes[i] = n
		for slot, t := range o.Outputs {
			if prev, ok := g.producers[t.ID]; ok {
				errs = multierr.Append(errs, errors.Wrapf(ErrAmbiguousProducer,
					"tensor %d produced by %s and %s", t.ID, g.ops[prev.Node], o))
				continue
			}
			g.producers[t.ID] = Use{Node: n.id, Slot: slot}
		}
	}
	if errs != nil {
		g.nodes = nil
		return errs
	}
	for _, n := range g.nodes {
		for slot, t := range n.op.Inputs {
			use := Use{Node: n.id, Slot: slot}
			g.consumers[t.ID] = append(g.consumers[t.ID], use)
			p, ok := g.producers[t.ID]
			if !ok {
				continue
			}
			n.producers[slot] = &p
			pn := g.nodes[p.Node]
			pn.consumers[p.Slot] = append(pn.consumers[p.Slot], use)
		}
	}
	if err := g.detectCycles(); err != nil {
		g.nodes = nil
		return err
	}
	g.topo = g.topoOrder()
	g.built = true
	return nil
}

// successors returns the distinct nodes consuming an output of n, sorted.
func (g *Graph) successors(n *Node) []NodeID {
	var ids []NodeID
	for _, cs := range n.consumers {
		for _, c := range cs {
			ids = append(ids, c.Node)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func (g *Graph) detectCycles() error {
	visiting := make(map[NodeID]bool)
	visited := make(map[NodeID]bool)
	var visit func(n *Node) error
	visit = func(n *Node) error {
		visiting[n.id] = true
		for _, next := range g.successors(n) {
			if visiting[next] {
				return errors.Wrapf(ErrCycleDetected, "involving %s", g.nodes[next].op)
			}
			if !visited[next] {
				if err := visit(g.nodes[next]); err != nil {
					return err
				}
			}
		}
		delete(visiting, n.id)
		visited[n.id] = true
		return nil
	}
	for _, n := range g.nodes {
		if !visited[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// topoOrder returns the nodes in topological order.
// Among the nodes ready at the same time, the smallest identifier comes first.
func (g *Graph) topoOrder() []NodeID {
	pending := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		for _, next := range g.successors(n) {
			pending[next]++
		}
	}
	var ready []NodeID
	for _, n := range g.nodes {
		if pending[n.id] == 0 {
			ready = append(ready, n.id)
		}
	}
	order := make([]NodeID, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, next := range g.successors(g.nodes[id]) {
			pending[next]--
			if pending[next] == 0 {
				i, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, i, next)
			}
		}
	}
	return order
}

// IsBuilt returns true if the nodes of the graph reflect all its records.
func (g *Graph) IsBuilt() bool {
	return g.built
}

// NumOps returns the number of records in the graph.
func (g *Graph) NumOps() int {
	return len(g.ops)
}

// Ops returns the records of the graph in insertion order.
func (g *Graph) Ops() []*op.Op {
	return slices.Clone(g.ops)
}

// MaxOpID returns the largest identifier given to a record by the caller.
// Returns false if no record has an identifier.
func (g *Graph) MaxOpID() (uint64, bool) {
	var maxID uint64
	found := false
	for _, o := range g.ops {
		if o.HasID() && (!found || o.ID > maxID) {
			maxID = o.ID
			found = true
		}
	}
	return maxID, found
}

// Nodes returns all the nodes of the graph ordered by identifier.
func (g *Graph) Nodes() []*Node {
	return slices.Clone(g.nodes)
}

// Node returns a node given its identifier or nil if the identifier is invalid.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Sources returns the nodes without any producer in the graph.
func (g *Graph) Sources() []*Node {
	var srcs []*Node
	for _, n := range g.nodes {
		if !slices.ContainsFunc(n.producers, func(p *Use) bool { return p != nil }) {
			srcs = append(srcs, n)
		}
	}
	return srcs
}

// Sinks returns the nodes whose outputs are not consumed in the graph.
func (g *Graph) Sinks() []*Node {
	var sinks []*Node
	for _, n := range g.nodes {
		if n.NumUses() == 0 {
			sinks = append(sinks, n)
		}
	}
	return sinks
}

// TopoOrder returns the identifiers of the nodes in topological order.
func (g *Graph) TopoOrder() []NodeID {
	return slices.Clone(g.topo)
}

// Producer returns the node and output slot producing a tensor.
func (g *Graph) Producer(tensorID uint64) (Use, bool) {
	u, ok := g.producers[tensorID]
	return u, ok
}

// Consumers returns the nodes and input slots consuming a tensor,
// including tensors external to the graph.
func (g *Graph) Consumers(tensorID uint64) []Use {
	return g.consumers[tensorID]
}

func (g *Graph) String() string {
	var body strings.Builder
	for _, n := range g.nodes {
		body.WriteString(n.String())
		if n.part != NoPartition {
			fmt.Fprintf(&body, " (partition %d)", n.part)
		}
		body.WriteString("\n")
	}
	for _, p := range g.parts {
		body.WriteString(p.String())
		body.WriteString("\n")
	}
	return fmt.Sprintf("graph: %d ops, %d nodes, %d partitions\n", len(g.ops), len(g.nodes), len(g.parts)) +
		fusefmt.Indent(body.String())
}
