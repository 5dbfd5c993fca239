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

package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/op/schema"
	"github.com/gx-org/fuse/pass"
	"github.com/gx-org/fuse/passes"
	"github.com/gx-org/fuse/report"
	"github.com/zclconf/go-cty/cty"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func record(id uint64, kind op.Kind, out uint64, ins ...uint64) *op.Op {
	o := op.New(id, kind, "")
	for _, in := range ins {
		o.AddInputs(op.NewTensor(in, dtype.Float32, 2, 2))
	}
	return o.AddOutputs(op.NewTensor(out, dtype.Float32, 2, 2))
}

func partitions(t *testing.T) []*graph.Partition {
	t.Helper()
	g := graph.New(graph.WithSchemas(nil))
	if err := g.AddOps(
		record(0, op.Convolution, 2, 0, 1),
		record(1, op.ReLU, 3, 2),
		record(2, op.HardTanh, 4, 3).
			SetAttr("min", cty.NumberIntVal(0)).
			SetAttr("max", cty.NumberIntVal(6)),
	); err != nil {
		t.Fatal(err)
	}
	if err := g.Build(); err != nil {
		t.Fatal(err)
	}
	parts, err := pass.NewManager(passes.Default(), pass.WithSchemas(schema.Default())).Run(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	return parts
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Text(&buf, partitions(t)); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"partition 0 conv_relu [fused] pass=conv_relu_fusion\n",
		"\tmembers: 0, 1\n",
		"\tops: 0, 1\n",
		"partition 1 HardTanh [singleton]\n",
		"\top: HardTanh#2 {max: 6, min: 0}\n",
		"summary: conv_relu_fusion=1 singleton=1\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("%q not found in:\n%s", want, got)
		}
	}
}

func TestJSON(t *testing.T) {
	b, err := report.JSON(partitions(t))
	if err != nil {
		t.Fatal(err)
	}
	var st structpb.Struct
	if err := protojson.Unmarshal(b, &st); err != nil {
		t.Fatal(err)
	}
	parts := st.GetFields()["partitions"].GetListValue().GetValues()
	if len(parts) != 2 {
		t.Fatalf("got %d partitions but want 2:\n%s", len(parts), b)
	}
	type summary struct {
		Label   string
		Status  string
		Members []any
		Attrs   map[string]any
	}
	var got []summary
	for _, p := range parts {
		fields := p.GetStructValue().GetFields()
		got = append(got, summary{
			Label:   fields["label"].GetStringValue(),
			Status:  fields["status"].GetStringValue(),
			Members: fields["members"].GetListValue().AsSlice(),
			Attrs:   fields["attrs"].GetStructValue().AsMap(),
		})
	}
	want := []summary{
		{Label: "conv_relu", Status: "fused", Members: []any{0.0, 1.0}, Attrs: map[string]any{}},
		{Label: "HardTanh", Status: "singleton", Members: []any{2.0}, Attrs: map[string]any{"min": 0.0, "max": 6.0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected partitions (-want +got):\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	parts := partitions(t)
	parts = append(parts, parts[0])
	type count struct {
		Name string
		N    int
	}
	var got []count
	for name, n := range report.Summary(parts).Iter() {
		got = append(got, count{Name: name, N: n})
	}
	want := []count{
		{Name: "conv_relu_fusion", N: 2},
		{Name: "singleton", N: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected summary (-want +got):\n%s", diff)
	}
}
