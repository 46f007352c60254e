package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/VladMinzatu/symtabgen/internal/config"
	"github.com/VladMinzatu/symtabgen/internal/generator"
	"github.com/VladMinzatu/symtabgen/internal/runner"
	"github.com/VladMinzatu/symtabgen/internal/symtab"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args, os.Stdout, os.Stderr, runner.NewExecRunner()))
}

// run returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, r runner.CommandRunner) int {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "YAML configuration file")
	binary := fs.String("binary", "", "kernel binary to read symbols from")
	nmTool := fs.String("nm", "", "symbol dump tool")
	source := fs.String("source", "", "symbol source: nm, elf or dump")
	dump := fs.String("dump", "", "pre-captured nm output (with --source=dump)")
	pprofPath := fs.String("pprof", "", "also write the table as a pprof symbol map")
	logLevel := fs.String("log-level", "", "DEBUG, INFO, WARN or ERROR")
	escapeNames := fs.Bool("escape-names", true, "escape symbol names for C string literals")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(stdout, "debug: args provided -> ")
		for _, arg := range args {
			fmt.Fprintln(stdout, arg)
		}
		fmt.Fprintln(stdout, color.YellowString("syntax: %s [flags] outputfile", filepath.Base(args[0])))
		return 1
	}
	outPath := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("Failed to load configuration: %v", err))
		return 1
	}
	if fs.Changed("binary") {
		cfg.BinaryPath = *binary
	}
	if fs.Changed("nm") {
		cfg.NmTool = *nmTool
	}
	if fs.Changed("source") {
		cfg.Source = *source
	}
	if fs.Changed("dump") {
		cfg.DumpPath = *dump
	}
	if fs.Changed("pprof") {
		cfg.PprofPath = *pprofPath
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("escape-names") {
		cfg.EscapeNames = *escapeNames
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, color.RedString("Invalid configuration: %v", err))
		return 1
	}

	lvl, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl})))

	src, err := generator.NewSource(cfg, r)
	if err != nil {
		slog.Error("Failed to initialise symbol source", "error", err)
		return 1
	}
	gen, err := generator.New(cfg, src)
	if err != nil {
		slog.Error("Failed to initialise generator", "error", err)
		return 1
	}

	if _, err := gen.Generate(ctx, outPath); err != nil {
		var toolErr *symtab.ToolError
		if errors.As(err, &toolErr) {
			fmt.Fprintln(stderr, color.RedString("Failed to run %s: %s", toolErr.Tool, strings.TrimRight(toolErr.Stderr, "\r\n")))
			return 1
		}
		slog.Error("Failed to generate symbol table", "path", outPath, "error", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadConfig(nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return config.LoadConfig(f)
}
