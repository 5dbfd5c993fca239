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

package pass

import (
	"log/slog"

	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/op/schema"
	"github.com/gx-org/fuse/pattern"
	"github.com/pkg/errors"
)

// Manager applies the passes of a registry to graphs.
// A manager can be shared by goroutines processing different graphs.
type Manager struct {
	reg     *Registry
	schemas schema.Table
	logger  *slog.Logger
	policy  Policy
}

// Option configures a manager.
type Option func(*Manager)

// WithSchemas sets the table deciding which kinds can run as singletons.
// By default, the manager uses the schemas of the graph.
func WithSchemas(tbl schema.Table) Option {
	return func(m *Manager) {
		m.schemas = tbl
	}
}

// WithLogger sets the logger of the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPolicy sets the partition policy.
func WithPolicy(p Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// NewManager returns a manager applying the passes of a registry.
func NewManager(reg *Registry, opts ...Option) *Manager {
	m := &Manager{
		reg:    reg,
		logger: slog.New(slog.DiscardHandler),
		policy: PolicyFusion,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the registry of the manager.
func (m *Manager) Registry() *Registry {
	return m.reg
}

// Plan returns the passes applied by Run given an ordering.
func (m *Manager) Plan(ord *Ordering) []*Pass {
	var passes []*Pass
	for _, p := range Plan(m.reg, ord) {
		if m.policy.allows(p) {
			passes = append(passes, p)
		}
	}
	return passes
}

// Run partitions a graph.
// Any previous partition of the graph is discarded. Passes are applied
// in order and nodes left are promoted to singleton partitions.
func (m *Manager) Run(g *graph.Graph, ord *Ordering) ([]*graph.Partition, error) {
	if !g.IsBuilt() {
		return nil, errors.Wrap(graph.ErrNotBuilt, "cannot partition graph")
	}
	for _, name := range Unknown(m.reg, ord) {
		m.logger.Warn("ignoring unknown pass", "pass", name)
	}
	g.ResetPartitions()
	r := m.newRun(g)
	for _, p := range m.Plan(ord) {
		if err := r.apply(p); err != nil {
			return nil, err
		}
	}
	if err := r.promote(); err != nil {
		return nil, err
	}
	m.logger.Debug("graph partitioned", "nodes", len(g.Nodes()), "partitions", g.NumPartitions())
	return g.Partitions(), nil
}

// Apply a single pass to a graph, keeping its existing partitions.
// It returns the partitions created by the pass.
func (m *Manager) Apply(g *graph.Graph, p *Pass) ([]*graph.Partition, error) {
	if !g.IsBuilt() {
		return nil, errors.Wrap(graph.ErrNotBuilt, "cannot apply pass "+p.Name)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	first := g.NumPartitions()
	if err := m.newRun(g).apply(p); err != nil {
		return nil, err
	}
	return g.Partitions()[first:], nil
}

// Promote creates singleton partitions for all the nodes not consumed yet.
func (m *Manager) Promote(g *graph.Graph) ([]*graph.Partition, error) {
	if !g.IsBuilt() {
		return nil, errors.Wrap(graph.ErrNotBuilt, "cannot promote singletons")
	}
	first := g.NumPartitions()
	if err := m.newRun(g).promote(); err != nil {
		return nil, err
	}
	return g.Partitions()[first:], nil
}

// run holds the state of the application of passes to a graph.
type run struct {
	m       *Manager
	g       *graph.Graph
	schemas schema.Table
	nextID  uint64
}

func (m *Manager) newRun(g *graph.Graph) *run {
	r := &run{m: m, g: g, schemas: m.schemas}
	if r.schemas == nil {
		r.schemas = g.Schemas()
	}
	if maxID, ok := g.MaxOpID(); ok {
		r.nextID = maxID + 1
	}
	for _, p := range g.Partitions() {
		if p.Op.HasID() && p.Op.ID >= r.nextID {
			r.nextID = p.Op.ID + 1
		}
	}
	return r
}

func (r *run) freshID() uint64 {
	id := r.nextID
	r.nextID++
	return id
}

func (r *run) apply(p *Pass) error {
	num := 0
	for _, pat := range p.Patterns {
		for _, m := range pattern.Find(r.g, pat) {
			if err := r.extract(p, m); err != nil {
				return err
			}
			num++
		}
	}
	r.m.logger.Debug("pass applied", "pass", p.Name, "matches", num)
	return nil
}

// extract replaces the nodes of a match by a partition.
func (r *run) extract(p *Pass, m *pattern.Match) error {
	ids := m.Nodes()
	nodes := make([]*graph.Node, len(ids))
	for i, id := range ids {
		nodes[i] = r.g.Node(id)
	}
	rec, err := p.Fuse(nodes)
	if err != nil {
		return errors.Wrapf(err, "pass %s", p.Name)
	}
	if rec == nil {
		return errors.Errorf("pass %s returned no record", p.Name)
	}
	rec = rec.Clone()
	rec.ID = r.freshID()
	status := graph.Fused
	if len(nodes) == 1 {
		// Single records keep their own tensors, duplicates included.
		rec.Inputs = cloneTensors(nodes[0].Inputs())
		rec.Outputs = cloneTensors(nodes[0].Outputs())
		status = graph.Singleton
	} else {
		rec.Inputs = m.Inputs()
		rec.Outputs = m.Outputs()
	}
	_, err = r.g.Commit(&graph.Partition{
		Label:   rec.Kind.String(),
		Pass:    p.Name,
		Op:      rec,
		Members: ids,
		Inputs:  rec.Inputs,
		Outputs: rec.Outputs,
		Status:  status,
	})
	return errors.Wrapf(err, "pass %s", p.Name)
}

func cloneTensors(ts []op.Tensor) []op.Tensor {
	cs := make([]op.Tensor, len(ts))
	for i, t := range ts {
		cs[i] = t.Clone()
	}
	return cs
}

// promote creates a partition for every node not consumed by a pass.
func (r *run) promote() error {
	for _, n := range r.g.Nodes() {
		if r.g.Consumed(n.ID()) {
			continue
		}
		rec := n.Op().Clone()
		status := graph.Unsupported
		if schema.SupportsSingleton(r.schemas, rec) {
			status = graph.Singleton
		}
		if _, err := r.g.Commit(&graph.Partition{
			Op:      rec,
			Members: []graph.NodeID{n.ID()},
			Inputs:  rec.Inputs,
			Outputs: rec.Outputs,
			Status:  status,
		}); err != nil {
			return errors.Wrapf(err, "cannot promote node %d", n.ID())
		}
		r.m.logger.Debug("promoted singleton", "node", int(n.ID()), "kind", rec.Kind.String(), "status", status.String())
	}
	return nil
}
