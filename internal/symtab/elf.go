package symtab

import (
	"context"
	"debug/elf"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ElfSource reads code symbols straight from the binary's .symtab, for hosts
// without a usable nm. Lines follow "nm -n" for symbols defined in executable
// sections: functions and untyped labels (asm entry points, ISR stubs), coded
// T/t by binding and W for weak ones.
type ElfSource struct {
	Path string
}

func NewElfSource(path string) *ElfSource {
	return &ElfSource{Path: path}
}

func (s *ElfSource) Lines(_ context.Context) ([]string, error) {
	slog.Info("Loading ELF symbols", "path", s.Path)
	ef, err := elf.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer ef.Close()

	syms, err := ef.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, fmt.Errorf("%s has no .symtab (stripped?)", s.Path)
		}
		return nil, fmt.Errorf("reading symbols of %s: %w", s.Path, err)
	}
	return elfTextLines(ef.Sections, syms), nil
}

func elfTextLines(sections []*elf.Section, syms []elf.Symbol) []string {
	text := make([]elf.Symbol, 0, len(syms))
	for _, sym := range syms {
		typ := elf.ST_TYPE(sym.Info)
		if (typ != elf.STT_FUNC && typ != elf.STT_NOTYPE) || sym.Name == "" {
			continue
		}
		idx := int(sym.Section)
		if sym.Section >= elf.SHN_LORESERVE || idx >= len(sections) {
			continue
		}
		if sections[idx].Flags&elf.SHF_EXECINSTR == 0 {
			continue
		}
		text = append(text, sym)
	}
	sort.SliceStable(text, func(i, j int) bool { return text[i].Value < text[j].Value })

	lines := make([]string, 0, len(text))
	for _, sym := range text {
		lines = append(lines, fmt.Sprintf("%016x %c %s", sym.Value, nmTypeCode(sym), sym.Name))
	}
	return lines
}

func nmTypeCode(sym elf.Symbol) byte {
	switch elf.ST_BIND(sym.Info) {
	case elf.STB_LOCAL:
		return 't'
	case elf.STB_WEAK:
		return 'W'
	}
	return 'T'
}
