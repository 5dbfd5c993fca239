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

// Package passcfg reads and writes the descriptor ordering fusion passes.
//
// A descriptor lists passes in the order they are applied:
//
//	pass "conv_bias_relu_fusion" {}
//	pass "conv_relu_fusion" {
//	  enabled = false
//	}
package passcfg

import (
	"io"

	"github.com/gx-org/fuse/pass"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
)

type passBlock struct {
	Name    string `hcl:"name,label"`
	Enabled *bool  `hcl:"enabled,optional"`
}

type file struct {
	Passes []*passBlock `hcl:"pass,block"`
}

// Load reads a descriptor from a file.
func Load(path string) (*pass.Ordering, error) {
	f, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "cannot parse pass configuration %s", path)
	}
	return decode(f, path)
}

// Parse reads a descriptor from its source.
func Parse(src []byte, filename string) (*pass.Ordering, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "cannot parse pass configuration %s", filename)
	}
	return decode(f, filename)
}

func decode(f *hcl.File, filename string) (*pass.Ordering, error) {
	var cfg file
	if diags := gohcl.DecodeBody(f.Body, nil, &cfg); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "cannot decode pass configuration %s", filename)
	}
	ord := &pass.Ordering{}
	var err error
	for i, blk := range cfg.Passes {
		if blk.Name == "" {
			err = multierr.Append(err, errors.Errorf("%s: pass %d has no name", filename, i))
			continue
		}
		ord.Entries = append(ord.Entries, pass.Entry{
			Name:     blk.Name,
			Disabled: blk.Enabled != nil && !*blk.Enabled,
		})
	}
	if err != nil {
		return nil, err
	}
	return ord, nil
}

// FromRegistry returns the descriptor enabling all the passes of a registry in priority order.
func FromRegistry(reg *pass.Registry) *pass.Ordering {
	return pass.NewOrdering(reg.Names()...)
}

// Write a descriptor.
func Write(w io.Writer, ord *pass.Ordering) error {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, e := range ord.Entries {
		if i > 0 {
			body.AppendNewline()
		}
		blk := body.AppendNewBlock("pass", []string{e.Name})
		blk.Body().SetAttributeValue("enabled", cty.BoolVal(!e.Disabled))
	}
	_, err := f.WriteTo(w)
	return errors.Wrap(err, "cannot write pass configuration")
}
