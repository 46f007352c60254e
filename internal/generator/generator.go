package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/VladMinzatu/symtabgen/internal/config"
	"github.com/VladMinzatu/symtabgen/internal/pprof"
	"github.com/VladMinzatu/symtabgen/internal/render"
	"github.com/VladMinzatu/symtabgen/internal/runner"
	"github.com/VladMinzatu/symtabgen/internal/symtab"
)

type Result struct {
	Symbols int
	Sorted  bool
	// Unreachable names entries whose code the in-kernel lookup would
	// attribute to another symbol or not find at all.
	Unreachable []string
}

type Generator struct {
	source    symtab.Source
	render    render.Options
	binary    string
	pprofPath string
}

func New(cfg *config.Config, source symtab.Source) (*Generator, error) {
	if source == nil {
		return nil, errors.New("nil symbol source")
	}
	return &Generator{
		source: source,
		render: render.Options{
			Header:       cfg.Header,
			StructName:   cfg.StructName,
			TableName:    cfg.TableName,
			SentinelName: cfg.SentinelName,
			EscapeNames:  cfg.EscapeNames,
		},
		binary:    cfg.BinaryPath,
		pprofPath: cfg.PprofPath,
	}, nil
}

// NewSource picks the symbol source named by cfg.Source.
func NewSource(cfg *config.Config, r runner.CommandRunner) (symtab.Source, error) {
	switch cfg.Source {
	case config.SourceNm:
		return symtab.NewNmSource(r, cfg.NmTool, cfg.BinaryPath, cfg.NmOrderFlag), nil
	case config.SourceElf:
		return symtab.NewElfSource(cfg.BinaryPath), nil
	case config.SourceDump:
		return symtab.NewDumpSource(cfg.DumpPath), nil
	}
	return nil, config.ConfigError(fmt.Sprintf("unknown source %q", cfg.Source))
}

// Generate writes the rendered symbol table to outPath. If the source fails
// nothing is written and an existing file at outPath is left as it was.
func (g *Generator) Generate(ctx context.Context, outPath string) (*Result, error) {
	lines, err := g.source.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("dumping symbols: %w", err)
	}

	table, err := symtab.ParseNmOutput(lines)
	if err != nil {
		return nil, fmt.Errorf("parsing symbols: %w", err)
	}
	sorted := table.Sorted()
	if !sorted {
		slog.Warn("Symbols are not in ascending address order; in-kernel lookups will be wrong", "binary", g.binary)
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, table, g.render); err != nil {
		return nil, fmt.Errorf("rendering symbol table: %w", err)
	}
	if err := render.WriteFile(outPath, buf.Bytes()); err != nil {
		return nil, err
	}
	slog.Info("Generated symbol table", "path", outPath, "symbols", table.Len())

	var unreachable []string
	for _, e := range table.Unreachable() {
		unreachable = append(unreachable, e.Name)
	}
	if len(unreachable) > 0 {
		slog.Warn("Stack traces will misattribute some symbols", "count", len(unreachable), "symbols", unreachable)
	}

	if g.pprofPath != "" {
		if err := pprof.WriteProfile(pprof.BuildSymbolMap(table, g.binary), g.pprofPath); err != nil {
			return nil, fmt.Errorf("writing pprof symbol map: %w", err)
		}
		slog.Info("Wrote pprof symbol map", "path", g.pprofPath)
	}
	return &Result{Symbols: table.Len(), Sorted: sorted, Unreachable: unreachable}, nil
}
