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

package passcfg_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/fuse/pass"
	"github.com/gx-org/fuse/passcfg"
	"github.com/gx-org/fuse/passes"
)

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want []pass.Entry
	}{
		{
			src:  ``,
			want: nil,
		},
		{
			src: `
pass "conv_relu_fusion" {}
pass "conv_bias_fusion" {
  enabled = true
}
pass "conv_bn_fusion" {
  enabled = false
}
`,
			want: []pass.Entry{
				{Name: "conv_relu_fusion"},
				{Name: "conv_bias_fusion"},
				{Name: "conv_bn_fusion", Disabled: true},
			},
		},
		{
			src: `
pass "unknown" {}
pass "unknown" {}
`,
			want: []pass.Entry{
				{Name: "unknown"},
				{Name: "unknown"},
			},
		},
	}
	for i, test := range tests {
		ord, err := passcfg.Parse([]byte(test.src), "test.hcl")
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		if diff := cmp.Diff(test.want, ord.Entries); diff != "" {
			t.Errorf("test %d: unexpected entries (-want +got):\n%s", i, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`pass {}`,
		`pass "a" { enabled = "maybe" }`,
		`pass "a" { priority = 1 }`,
		`passes = 1`,
		`pass "" {}`,
		`pass "a" {`,
	}
	for i, src := range tests {
		if _, err := passcfg.Parse([]byte(src), "test.hcl"); err == nil {
			t.Errorf("test %d: expected an error for %q", i, src)
		}
	}
}

func TestWrite(t *testing.T) {
	reg := passes.Default()
	ord := passcfg.FromRegistry(reg).Disable("conv_bn_fusion")
	var buf bytes.Buffer
	if err := passcfg.Write(&buf, ord); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `pass "conv_relu_fusion" {`) {
		t.Errorf("conv_relu_fusion missing from:\n%s", buf.String())
	}
	path := filepath.Join(t.TempDir(), "passes.hcl")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := passcfg.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ord.Entries, got.Entries); diff != "" {
		t.Errorf("unexpected entries (-want +got):\n%s", diff)
	}
	plan := pass.Plan(reg, got)
	if len(plan) != reg.Len()-1 {
		t.Errorf("got %d passes but want %d", len(plan), reg.Len()-1)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := passcfg.Load(filepath.Join(t.TempDir(), "missing.hcl")); err == nil {
		t.Error("expected an error")
	}
}
