package symtab

import (
	"context"
	"debug/elf"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElfTextLines(t *testing.T) {
	sections := []*elf.Section{
		{SectionHeader: elf.SectionHeader{Name: ""}},
		{SectionHeader: elf.SectionHeader{Name: ".text", Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR}},
		{SectionHeader: elf.SectionHeader{Name: ".data", Flags: elf.SHF_ALLOC | elf.SHF_WRITE}},
	}
	fn := func(bind elf.SymBind) byte { return elf.ST_INFO(bind, elf.STT_FUNC) }
	syms := []elf.Symbol{
		{Name: "late", Info: fn(elf.STB_GLOBAL), Section: 1, Value: 0x3000},
		{Name: "local_helper", Info: fn(elf.STB_LOCAL), Section: 1, Value: 0x2000},
		{Name: "weak_hook", Info: fn(elf.STB_WEAK), Section: 1, Value: 0x2800},
		{Name: "kmain", Info: fn(elf.STB_GLOBAL), Section: 1, Value: 0x1000},
		{Name: "data_obj", Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT), Section: 2, Value: 0x5000},
		{Name: "func_in_data", Info: fn(elf.STB_GLOBAL), Section: 2, Value: 0x5100},
		{Name: ".text", Info: elf.ST_INFO(elf.STB_LOCAL, elf.STT_SECTION), Section: 1, Value: 0x1000},
		{Name: "boot.S", Info: elf.ST_INFO(elf.STB_LOCAL, elf.STT_FILE), Section: elf.SHN_ABS},
		{Name: "undefined", Info: fn(elf.STB_GLOBAL), Section: elf.SHN_UNDEF},
		{Name: "absolute", Info: fn(elf.STB_GLOBAL), Section: elf.SHN_ABS, Value: 0x10},
		{Name: "", Info: fn(elf.STB_LOCAL), Section: 1, Value: 0x1800},
	}

	lines := elfTextLines(sections, syms)
	assert.Equal(t, []string{
		"0000000000001000 T kmain",
		"0000000000002000 t local_helper",
		"0000000000002800 W weak_hook",
		"0000000000003000 T late",
	}, lines)

	table, err := ParseNmOutput(lines)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len(), "weak symbols are not T/t and must be filtered like nm output")
	assert.True(t, table.Sorted())
}

func TestElfTextLines_UntypedAsmLabels(t *testing.T) {
	sections := []*elf.Section{
		{SectionHeader: elf.SectionHeader{Name: ""}},
		{SectionHeader: elf.SectionHeader{Name: ".text", Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR}},
		{SectionHeader: elf.SectionHeader{Name: ".rodata", Flags: elf.SHF_ALLOC}},
	}
	syms := []elf.Symbol{
		{Name: "kmain", Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), Section: 1, Value: 0x1100},
		{Name: "isr_stub0", Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_NOTYPE), Section: 1, Value: 0x1000},
		{Name: "asm_local", Info: elf.ST_INFO(elf.STB_LOCAL, elf.STT_NOTYPE), Section: 1, Value: 0x1010},
		{Name: "rodata_label", Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_NOTYPE), Section: 2, Value: 0x4000},
	}

	assert.Equal(t, []string{
		"0000000000001000 T isr_stub0",
		"0000000000001010 t asm_local",
		"0000000000001100 T kmain",
	}, elfTextLines(sections, syms))
}

func TestElfSource_ReadsOwnTestBinary(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("test binary is only ELF on linux")
	}
	exe, err := os.Executable()
	require.NoError(t, err)

	lines, err := NewElfSource(exe).Lines(context.Background())
	if err != nil && strings.Contains(err.Error(), "no .symtab") {
		t.Skip("test binary is stripped")
	}
	require.NoError(t, err)
	require.NotEmpty(t, lines)

	table, err := ParseNmOutput(lines)
	require.NoError(t, err)
	assert.NotZero(t, table.Len())
	assert.True(t, table.Sorted())
}

func TestElfSource_NotAnElfFile(t *testing.T) {
	path := t.TempDir() + "/not-elf"
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	_, err := NewElfSource(path).Lines(context.Background())
	require.Error(t, err)
}
