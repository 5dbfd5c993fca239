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

// Package report renders the partitions of a graph.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	fusefmt "github.com/gx-org/fuse/base/fmt"
	"github.com/gx-org/fuse/base/ordered"
	"github.com/gx-org/fuse/base/stringseq"
	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Summary counts the partitions created by every pass, in order of first appearance.
// Promoted singletons are counted under their status.
func Summary(parts []*graph.Partition) *ordered.Map[string, int] {
	counts := ordered.NewMap[string, int]()
	for _, p := range parts {
		key := p.Pass
		if key == "" {
			key = p.Status.String()
		}
		n, _ := counts.Load(key)
		counts.Store(key, n+1)
	}
	return counts
}

// Text writes a human-readable description of partitions.
func Text(w io.Writer, parts []*graph.Partition) error {
	var s strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&s, "partition %d %s [%s]", p.ID, p.Label, p.Status)
		if p.Pass != "" {
			fmt.Fprintf(&s, " pass=%s", p.Pass)
		}
		s.WriteString("\n")
		var body strings.Builder
		fmt.Fprintf(&body, "op: %s#%d %s\n", p.Op.Kind, p.Op.ID, p.Op.Attrs)
		fmt.Fprintf(&body, "members: %s\n", stringseq.JoinValues(slices.Values(p.Members), ", "))
		fmt.Fprintf(&body, "ops: %s\n", stringseq.JoinValues(slices.Values(p.OpIDs()), ", "))
		fmt.Fprintf(&body, "inputs: %s\n", stringseq.JoinStringer(slices.Values(p.Inputs), ", "))
		fmt.Fprintf(&body, "outputs: %s\n", stringseq.JoinStringer(slices.Values(p.Outputs), ", "))
		s.WriteString(fusefmt.Indent(body.String()))
	}
	if len(parts) > 0 {
		s.WriteString("summary:")
		for name, n := range Summary(parts).Iter() {
			fmt.Fprintf(&s, " %s=%d", name, n)
		}
		s.WriteString("\n")
	}
	_, err := io.WriteString(w, s.String())
	return errors.Wrap(err, "cannot write partitions")
}

func tensors(ts []op.Tensor) []any {
	vals := make([]any, len(ts))
	for i, t := range ts {
		axes := make([]any, len(t.Shape.AxisLengths))
		for j, l := range t.Shape.AxisLengths {
			axes[j] = l
		}
		vals[i] = map[string]any{
			"id":    t.ID,
			"dtype": t.DType().String(),
			"shape": axes,
		}
	}
	return vals
}

func attrValue(v cty.Value) any {
	if !v.IsWhollyKnown() || v.IsNull() {
		return nil
	}
	tp := v.Type()
	switch {
	case tp == cty.String:
		return v.AsString()
	case tp == cty.Bool:
		return v.True()
	case tp == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f
	case tp.IsListType() || tp.IsTupleType() || tp.IsSetType():
		var vals []any
		for _, el := range v.AsValueSlice() {
			vals = append(vals, attrValue(el))
		}
		return vals
	}
	return op.FormatValue(v)
}

func members(ids []graph.NodeID) []any {
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = int(id)
	}
	return vals
}

func opIDs(ids []uint64) []any {
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	return vals
}

// Proto returns the partitions as a protobuf structure.
func Proto(parts []*graph.Partition) (*structpb.Struct, error) {
	list := make([]any, len(parts))
	for i, p := range parts {
		attrs := make(map[string]any, len(p.Op.Attrs))
		for _, name := range p.Op.Attrs.Names() {
			attrs[name] = attrValue(p.Op.Attrs[name])
		}
		list[i] = map[string]any{
			"id":      int(p.ID),
			"label":   p.Label,
			"pass":    p.Pass,
			"status":  p.Status.String(),
			"kind":    p.Op.Kind.String(),
			"op_id":   p.Op.ID,
			"attrs":   attrs,
			"members": members(p.Members),
			"op_ids":  opIDs(p.OpIDs()),
			"inputs":  tensors(p.Inputs),
			"outputs": tensors(p.Outputs),
		}
	}
	summary := make(map[string]any)
	for name, n := range Summary(parts).Iter() {
		summary[name] = n
	}
	st, err := structpb.NewStruct(map[string]any{
		"partitions": list,
		"summary":    summary,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert partitions")
	}
	return st, nil
}

// JSON returns the partitions encoded in JSON.
func JSON(parts []*graph.Partition) ([]byte, error) {
	st, err := Proto(parts)
	if err != nil {
		return nil, err
	}
	b, err := protojson.MarshalOptions{Multiline: true}.Marshal(st)
	return b, errors.Wrap(err, "cannot marshal partitions")
}
