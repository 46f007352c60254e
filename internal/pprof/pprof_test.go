package pprof

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VladMinzatu/symtabgen/internal/symtab"
)

func table(t *testing.T, lines ...string) *symtab.Table {
	t.Helper()
	tab, err := symtab.ParseNmOutput(lines)
	require.NoError(t, err)
	return tab
}

func TestBuildSymbolMap_Empty(t *testing.T) {
	p := BuildSymbolMap(table(t), "kernel.elf")
	require.NotNil(t, p)
	assert.Empty(t, p.Location)
	assert.Empty(t, p.Function)
	assert.NoError(t, p.CheckValid())
}

func TestBuildSymbolMap_LocationsPerEntry(t *testing.T) {
	p := BuildSymbolMap(table(t,
		"ffffffff80001000 T kmain",
		"ffffffff80002000 t helper",
		"ffffffff80003000 t helper", // same static name in two translation units
	), "bin/kernel.elf_x86_64")

	require.Len(t, p.Location, 3)
	assert.Len(t, p.Function, 2, "functions are deduplicated by name")
	assert.Equal(t, uint64(0xffffffff80002000), p.Location[1].Address)
	assert.Same(t, p.Location[1].Line[0].Function, p.Location[2].Line[0].Function)

	m := p.Mapping[0]
	assert.Equal(t, "bin/kernel.elf_x86_64", m.File)
	assert.Equal(t, uint64(0xffffffff80001000), m.Start)
	assert.Equal(t, uint64(0xffffffff80003001), m.Limit)
	assert.NoError(t, p.CheckValid())
}

func TestBuildSymbolMap_TopOfAddressSpace(t *testing.T) {
	p := BuildSymbolMap(table(t,
		"ffffffff80001000 T kmain",
		"ffffffffffffffff T last_byte",
	), "kernel.elf")

	m := p.Mapping[0]
	assert.Equal(t, uint64(0xffffffff80001000), m.Start)
	assert.Equal(t, uint64(math.MaxUint64), m.Limit)
	assert.Greater(t, m.Limit, m.Start)
}

func TestWriteProfile_RoundTrip(t *testing.T) {
	p := BuildSymbolMap(table(t,
		"0000000000100020 T kmain",
		"0000000000100050 t helper_fn",
	), "kernel.elf")

	path := filepath.Join(t.TempDir(), "symbols.pb.gz")
	require.NoError(t, WriteProfile(p, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := profile.Parse(f)
	require.NoError(t, err)
	require.Len(t, got.Location, 2)
	assert.Equal(t, "kmain", got.Location[0].Line[0].Function.Name)
}
