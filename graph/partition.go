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

package graph

import (
	"fmt"
	"slices"

	"github.com/gx-org/fuse/base/uname"
	"github.com/gx-org/fuse/op"
	"github.com/pkg/errors"
)

// PartitionID identifies a partition in a graph.
type PartitionID int

// NoPartition is the partition of nodes not consumed by any partition.
const NoPartition PartitionID = -1

// Status of a partition.
type Status int

const (
	// Fused partitions have been rewritten by a fusion pass.
	Fused Status = iota
	// Singleton partitions hold a single operator a library can execute.
	Singleton
	// Unsupported partitions hold a single operator no library can execute.
	Unsupported
)

var statusNames = map[Status]string{
	Fused:       "fused",
	Singleton:   "singleton",
	Unsupported: "unsupported",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Partition is a set of nodes replaced by a single operator.
type Partition struct {
	ID    PartitionID
	Label string
	// Pass is the name of the pass which created the partition.
	// It is empty for promoted singletons.
	Pass string
	// Op is the operator executing the partition.
	Op *op.Op
	// Members are the nodes of the partition.
	Members []NodeID
	// Inputs and Outputs are the tensors crossing the partition boundary.
	Inputs, Outputs []op.Tensor
	Status          Status

	opIDs []uint64
}

// OpIDs returns the identifiers of the records represented by the partition,
// in the order of its members.
func (p *Partition) OpIDs() []uint64 {
	return p.opIDs
}

func (p *Partition) String() string {
	return fmt.Sprintf("partition %d %q %s members=%v in=%v out=%v op=%s",
		p.ID, p.Label, p.Status, p.Members, op.IDs(p.Inputs), op.IDs(p.Outputs), p.Op)
}

func (g *Graph) resetPartitions() {
	g.parts = nil
	g.labels = uname.New()
	for _, n := range g.nodes {
		n.part = NoPartition
	}
}

// ResetPartitions discards all the partitions of the graph.
func (g *Graph) ResetPartitions() {
	g.resetPartitions()
}

// Consumed returns true if a node belongs to a partition.
func (g *Graph) Consumed(id NodeID) bool {
	n := g.Node(id)
	return n != nil && n.part != NoPartition
}

// Commit records a partition and marks its members as consumed.
// The partition identifier and the identifiers of its records are set by the graph.
// The label is made unique: it defaults to the kind of the partition operator.
func (g *Graph) Commit(p *Partition) (PartitionID, error) {
	if !g.built {
		return NoPartition, errors.Wrapf(ErrNotBuilt, "cannot commit partition %q", p.Label)
	}
	if p.Op == nil {
		return NoPartition, errors.Errorf("partition %q has no operator", p.Label)
	}
	if len(p.Members) == 0 {
		return NoPartition, errors.Errorf("partition %q has no member", p.Label)
	}
	seen := make(map[NodeID]bool, len(p.Members))
	for _, id := range p.Members {
		n := g.Node(id)
		if n == nil {
			return NoPartition, errors.Errorf("partition %q: invalid node %d", p.Label, id)
		}
		if seen[id] {
			return NoPartition, errors.Errorf("partition %q: node %d listed twice", p.Label, id)
		}
		seen[id] = true
		if n.part != NoPartition {
			return NoPartition, errors.Errorf("partition %q: node %d already in partition %d", p.Label, id, n.part)
		}
	}
	id := PartitionID(len(g.parts))
	p.ID = id
	root := p.Label
	if root == "" {
		root = p.Op.Kind.String()
	}
	p.Label = g.labels.Name(root)
	p.Members = slices.Clone(p.Members)
	p.opIDs = make([]uint64, 0, len(p.Members))
	for _, m := range p.Members {
		n := g.nodes[m]
		n.part = id
		p.opIDs = append(p.opIDs, n.OpIDs()...)
	}
	g.parts = append(g.parts, p)
	return id, nil
}

// Partitions returns the partitions of the graph in commit order.
func (g *Graph) Partitions() []*Partition {
	return slices.Clone(g.parts)
}

// NumPartitions returns the number of partitions in the graph.
func (g *Graph) NumPartitions() int {
	return len(g.parts)
}

// Partition returns a partition given its identifier or nil if the identifier is invalid.
func (g *Graph) Partition(id PartitionID) *Partition {
	if id < 0 || int(id) >= len(g.parts) {
		return nil
	}
	return g.parts[id]
}

// PartitionOf returns the partition owning a node.
func (g *Graph) PartitionOf(id NodeID) (*Partition, bool) {
	n := g.Node(id)
	if n == nil || n.part == NoPartition {
		return nil, false
	}
	return g.parts[n.part], true
}

// PartitionOfOp returns the partition owning a record given its identifier.
func (g *Graph) PartitionOfOp(opID uint64) (*Partition, bool) {
	for _, n := range g.nodes {
		if n.op.ID == opID && n.op.HasID() {
			return g.PartitionOf(n.id)
		}
	}
	return nil, false
}
