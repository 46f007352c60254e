package symtab

// Entry is one text symbol as reported by the symbol dump tool.
type Entry struct {
	Addr uint64
	// AddrText is the address exactly as the tool printed it, without "0x".
	AddrText string
	Type     byte
	Name     string
}

// Symbol is the result of resolving an address against a Table.
type Symbol struct {
	Name   string
	Addr   uint64
	Offset uint64
}
