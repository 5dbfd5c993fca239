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

// Package main partitions an operator graph described in HCL and prints the partitions.
//
// Usage:
//
//	fusepart -graph model.hcl [-pass_config passes.hcl] [-passes a,b] [-disable c] [-policy fusion|debug] [-format text|json]
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gx-org/fuse/backend"
	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/hclgraph"
	"github.com/gx-org/fuse/op/schema"
	"github.com/gx-org/fuse/pass"
	"github.com/gx-org/fuse/passcfg"
	"github.com/gx-org/fuse/passes"
	"github.com/gx-org/fuse/report"
	"github.com/gx-org/fuse/tools/fuseflag"
	"github.com/pkg/errors"
)

type config struct {
	graph           string
	passConfig      string
	passes          *[]string
	disable         *[]string
	policy          *string
	format          *string
	logLevel        *string
	logFormat       *string
	writePassConfig bool
	compile         bool
	hostSupport     bool
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("fusepart", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := &config{}
	fs.StringVar(&cfg.graph, "graph", "", "HCL file describing the operator graph")
	fs.StringVar(&cfg.passConfig, "pass_config", "", "HCL file ordering the passes")
	cfg.passes = fuseflag.StringListVar(fs, "passes", "passes to reorder: listed passes swap into the registry positions they occupy, in the given order")
	cfg.disable = fuseflag.StringListVar(fs, "disable", "passes not to apply")
	cfg.policy = fuseflag.ChoiceVar(fs, "policy", "partitioning policy", pass.PolicyFusion.String(), pass.PolicyDebug.String())
	cfg.format = fuseflag.ChoiceVar(fs, "format", "output format", "text", "json")
	cfg.logLevel = fuseflag.ChoiceVar(fs, "log_level", "logging level", "info", "debug", "warn", "error")
	cfg.logFormat = fuseflag.ChoiceVar(fs, "log_format", "logging format", "text", "json")
	fs.BoolVar(&cfg.writePassConfig, "write_pass_config", false, "write the pass configuration instead of partitioning")
	fs.BoolVar(&cfg.compile, "compile", false, "compile the partitions with the host kernel library")
	fs.BoolVar(&cfg.hostSupport, "host_support", true, "restrict singleton kernels to the data types of the host CPU")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}

func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ordering returns the pass ordering given the configuration file and the flags.
// Passes listed by flags are applied after the passes of the file.
func (cfg *config) ordering() (*pass.Ordering, error) {
	ord := &pass.Ordering{}
	if cfg.passConfig != "" {
		var err error
		if ord, err = passcfg.Load(cfg.passConfig); err != nil {
			return nil, err
		}
	}
	ord.Entries = append(ord.Entries, pass.NewOrdering(*cfg.passes...).Entries...)
	ord.Disable(*cfg.disable...)
	if len(ord.Entries) == 0 {
		return nil, nil
	}
	return ord, nil
}

func (cfg *config) schemas() *schema.Catalog {
	if cfg.hostSupport {
		return backend.HostSupport(schema.Default())
	}
	return schema.Default()
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(*cfg.logLevel, *cfg.logFormat, stderr)
	policy, err := pass.ParsePolicy(*cfg.policy)
	if err != nil {
		return err
	}
	ord, err := cfg.ordering()
	if err != nil {
		return err
	}
	schemas := cfg.schemas()
	mgr := pass.NewManager(passes.Default(),
		pass.WithSchemas(schemas),
		pass.WithLogger(logger),
		pass.WithPolicy(policy),
	)
	if cfg.writePassConfig {
		return passcfg.Write(stdout, pass.NewOrdering(names(mgr.Plan(ord))...))
	}
	if cfg.graph == "" {
		return errors.Errorf("no graph specified: please use -graph to specify a graph file")
	}
	g, err := hclgraph.Load(cfg.graph, graph.WithSchemas(schemas))
	if err != nil {
		return err
	}
	logger.Debug("graph loaded", "path", cfg.graph, "ops", g.NumOps())
	parts, err := mgr.Run(g, ord)
	if err != nil {
		return err
	}
	if cfg.compile {
		compile(logger, schemas, parts)
	}
	switch *cfg.format {
	case "json":
		b, err := report.JSON(parts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(b))
		return err
	default:
		return report.Text(stdout, parts)
	}
}

func names(ps []*pass.Pass) []string {
	ns := make([]string, len(ps))
	for i, p := range ps {
		ns[i] = p.Name
	}
	return ns
}

func compile(logger *slog.Logger, schemas schema.Table, parts []*graph.Partition) {
	lib := backend.NewKernelLibrary("host", schemas)
	exes := backend.NewExecutableManager()
	c := backend.NewCompiler(lib, exes, backend.WithLogger(logger))
	_, err := c.Compile(parts)
	if err != nil {
		logger.Warn("some partitions cannot be compiled", "error", err)
	}
	logger.Info("partitions compiled", "partitions", len(parts), "kernels", c.NumCompiled())
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "fusepart: %v\n", err)
		}
		os.Exit(1)
	}
}
