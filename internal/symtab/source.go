package symtab

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/VladMinzatu/symtabgen/internal/runner"
)

// Source produces nm-shaped lines: "<hex addr> <type> <name>".
type Source interface {
	Lines(ctx context.Context) ([]string, error)
}

// ToolError is returned when the symbol dump tool exits with a non-zero status.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, strings.TrimSpace(e.Stderr))
}

type NmSource struct {
	runner    runner.CommandRunner
	tool      string
	binary    string
	orderFlag string
}

func NewNmSource(r runner.CommandRunner, tool, binary, orderFlag string) *NmSource {
	return &NmSource{runner: r, tool: tool, binary: binary, orderFlag: orderFlag}
}

func (s *NmSource) Lines(ctx context.Context) ([]string, error) {
	args := []string{s.binary}
	if s.orderFlag != "" {
		args = append(args, s.orderFlag)
	}
	slog.Info("Dumping symbols", "tool", s.tool, "binary", s.binary)
	res, err := s.runner.Run(ctx, s.tool, args...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, &ToolError{Tool: s.tool, ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
	}
	return splitLines(res.Stdout)
}

// DumpSource reads an nm listing captured ahead of time.
type DumpSource struct {
	Path string
}

func NewDumpSource(path string) *DumpSource {
	return &DumpSource{Path: path}
}

func (d *DumpSource) Lines(_ context.Context) ([]string, error) {
	slog.Debug("Loading nm dump", "path", d.Path)
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scanLines(bufio.NewScanner(f))
}

func splitLines(data []byte) ([]string, error) {
	return scanLines(bufio.NewScanner(bytes.NewReader(data)))
}

func scanLines(s *bufio.Scanner) ([]string, error) {
	// C++ and Rust mangled names can exceed the default token size
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
