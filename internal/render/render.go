package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/VladMinzatu/symtabgen/internal/symtab"
)

type Options struct {
	Header       string
	StructName   string
	TableName    string
	SentinelName string
	// EscapeNames turns symbol names into valid C string literals. When false,
	// names are embedded verbatim.
	EscapeNames bool
}

func DefaultOptions() Options {
	return Options{
		Header:       "stacktrace.h",
		StructName:   "stacktrace_symbol_table_entry",
		TableName:    "stacktrace_symtable",
		SentinelName: "INVALID SYMBOL",
		EscapeNames:  true,
	}
}

// Render writes a C translation unit defining the symbol table array. The
// sentinel entry is always last, and the output has no trailing newline.
func Render(w io.Writer, t *symtab.Table, opts Options) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#include \"%s\"\n\nstruct %s %s[] = {\n", EscapeCString(opts.Header), opts.StructName, opts.TableName)
	for _, e := range t.Entries() {
		name := e.Name
		if opts.EscapeNames {
			name = EscapeCString(name)
		}
		fmt.Fprintf(bw, "    {0x%s, \"%s\"},\n", e.AddrText, name)
	}
	fmt.Fprintf(bw, "    {0x0, \"%s\"}\n};", EscapeCString(opts.SentinelName))
	return bw.Flush()
}

// EscapeCString escapes s for use inside a C string literal.
func EscapeCString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c >= 0x7f:
			// always three digits so a following digit is not absorbed
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
