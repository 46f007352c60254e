package symtab

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

type Table struct {
	entries []Entry
}

func NewTable(entries []Entry) *Table {
	return &Table{entries: entries}
}

func (t *Table) Entries() []Entry { return t.entries }

func (t *Table) Len() int { return len(t.entries) }

// IsTextSymbol reports whether an nm type code denotes a symbol in the text
// section, global (T) or local (t).
func IsTextSymbol(code string) bool {
	return code == "T" || code == "t"
}

// ParseNmOutput keeps the text symbols of an nm listing, in listing order.
func ParseNmOutput(lines []string) (*Table, error) {
	entries := make([]Entry, 0, len(lines)/2)
	for _, line := range lines {
		// Format: "ffffffff80000000 T kmain"
		parts := strings.Fields(line)
		if len(parts) < 3 {
			// undefined symbols ("U name") carry no address
			slog.Debug("Skipping short nm line", "line", line)
			continue
		}
		if !IsTextSymbol(parts[1]) {
			continue
		}
		addr, err := strconv.ParseUint(parts[0], 16, 64)
		if err != nil {
			slog.Warn("Skipping nm line with invalid address", "line", line, "error", err)
			continue
		}
		entries = append(entries, Entry{
			Addr:     addr,
			AddrText: parts[0],
			Type:     parts[1][0],
			Name:     parts[2],
		})
	}
	slog.Debug("Parsed nm output", "lines", len(lines), "text_symbols", len(entries))
	return NewTable(entries), nil
}

// Sorted reports whether entries are in ascending address order, which the
// in-kernel lookup relies on.
func (t *Table) Sorted() bool {
	return sort.SliceIsSorted(t.entries, func(i, j int) bool { return t.entries[i].Addr < t.entries[j].Addr })
}

// Lookup names addr the way the kernel's stacktrace code does with the
// generated array: a linear scan that stops at the first zero address (the
// sentinel), attributing addr to the entry before the first one whose address
// is >= addr. Addresses at or past the last scanned entry are not found, and
// addresses at or below the first entry resolve to it with a wrapped offset.
func (t *Table) Lookup(addr uint64) (*Symbol, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	prev := t.entries[0]
	for _, e := range t.entries {
		if e.Addr == 0 {
			break
		}
		if addr <= e.Addr {
			return &Symbol{Name: prev.Name, Addr: prev.Addr, Offset: addr - prev.Addr}, true
		}
		prev = e
	}
	return nil, false
}

// Unreachable lists entries whose code the in-kernel lookup never attributes
// to them: the first byte after an entry's address must resolve to that
// address. Zero addresses and out-of-order entries show up here. The final
// entry is not checked since the scan never resolves past it.
func (t *Table) Unreachable() []Entry {
	var out []Entry
	for i := 0; i+1 < len(t.entries); i++ {
		e := t.entries[i]
		sym, ok := t.Lookup(e.Addr + 1)
		if !ok || sym.Addr != e.Addr {
			out = append(out, e)
		}
	}
	return out
}
