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
	"strings"

	"github.com/gx-org/fuse/op"
)

// NodeID identifies a node in a graph.
// Identifiers are assigned in insertion order, starting at 0.
type NodeID int

// Use is a connection point of a node: an input or output slot.
type Use struct {
	Node NodeID
	Slot int
}

func (u Use) String() string {
	return fmt.Sprintf("%d:%d", u.Node, u.Slot)
}

// Node of an operator graph.
type Node struct {
	id   NodeID
	op   *op.Op
	part PartitionID

	// producers[i] is the producer of input i, if produced in the graph.
	producers []*Use
	// consumers[i] lists the consumers of output i.
	consumers [][]Use
}

// ID of the node in its graph.
func (n *Node) ID() NodeID {
	return n.id
}

// Op returns the operator record represented by the node.
// The record is owned by the graph and must not be modified.
func (n *Node) Op() *op.Op {
	return n.op
}

// Kind of the operator represented by the node.
func (n *Node) Kind() op.Kind {
	return n.op.Kind
}

// OpIDs returns the identifiers of the operators represented by the node.
func (n *Node) OpIDs() []uint64 {
	return []uint64{n.op.ID}
}

// Inputs of the node.
func (n *Node) Inputs() []op.Tensor {
	return n.op.Inputs
}

// Outputs of the node.
func (n *Node) Outputs() []op.Tensor {
	return n.op.Outputs
}

// NumInputs returns the number of input slots.
func (n *Node) NumInputs() int {
	return len(n.op.Inputs)
}

// NumOutputs returns the number of output slots.
func (n *Node) NumOutputs() int {
	return len(n.op.Outputs)
}

// Producer returns the node and output slot producing an input.
// Returns false if the input is external to the graph.
func (n *Node) Producer(slot int) (Use, bool) {
	if slot < 0 || slot >= len(n.producers) || n.producers[slot] == nil {
		return Use{}, false
	}
	return *n.producers[slot], true
}

// Consumers returns the nodes and input slots consuming an output,
// sorted by node and then slot.
func (n *Node) Consumers(slot int) []Use {
	if slot < 0 || slot >= len(n.consumers) {
		return nil
	}
	return n.consumers[slot]
}

// NumUses returns the number of input slots consuming any output of the node.
func (n *Node) NumUses() int {
	num := 0
	for _, cs := range n.consumers {
		num += len(cs)
	}
	return num
}

// Partition returns the partition owning the node or NoPartition.
func (n *Node) Partition() PartitionID {
	return n.part
}

func (n *Node) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "node %d %s", n.id, n.op)
	for slot, p := range n.producers {
		if p != nil {
			fmt.Fprintf(&s, " [in%d<-%s]", slot, p)
		}
	}
	return s.String()
}
