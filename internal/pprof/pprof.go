package pprof

import (
	"fmt"
	"math"
	"os"

	"github.com/VladMinzatu/symtabgen/internal/symtab"
	"github.com/google/pprof/profile"
)

// BuildSymbolMap describes the table as a sample-less pprof profile: one
// mapping for the binary, one location per symbol address, one function per
// distinct name. pprof tooling can then symbolize raw kernel addresses
// offline with it.
func BuildSymbolMap(t *symtab.Table, binary string) *profile.Profile {
	mapping := &profile.Mapping{
		ID:           1,
		File:         binary,
		HasFunctions: true,
	}
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "symbols", Unit: "count"}},
		Mapping:    []*profile.Mapping{mapping},
	}

	entries := t.Entries()
	if len(entries) > 0 {
		mapping.Start = entries[0].Addr
		mapping.Limit = entries[0].Addr
		for _, e := range entries {
			if e.Addr < mapping.Start {
				mapping.Start = e.Addr
			}
			switch {
			case e.Addr == math.MaxUint64:
				mapping.Limit = math.MaxUint64
			case e.Addr >= mapping.Limit:
				mapping.Limit = e.Addr + 1
			}
		}
	}

	funcs := map[string]*profile.Function{}
	nextFuncID := uint64(1)
	addFunction := func(name string) *profile.Function {
		if f, ok := funcs[name]; ok {
			return f
		}
		fn := &profile.Function{
			ID:         nextFuncID,
			Name:       name,
			SystemName: name,
		}
		nextFuncID++
		funcs[name] = fn
		p.Function = append(p.Function, fn)
		return fn
	}

	for i, e := range entries {
		p.Location = append(p.Location, &profile.Location{
			ID:      uint64(i + 1),
			Mapping: mapping,
			Address: e.Addr,
			Line:    []profile.Line{{Function: addFunction(e.Name)}},
		})
	}
	return p
}

// WriteProfile writes p gzip-compressed to path.
func WriteProfile(p *profile.Profile, path string) error {
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("invalid symbol map profile: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
