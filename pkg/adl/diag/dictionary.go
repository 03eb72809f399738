package diag

// SymbolDictionary lists the names valid in some grammar edition, for
// suggestions and editor completion. The engine assembles one from the active
// grammar's keywords, the function registry, and the caller's attribute
// names.
type SymbolDictionary interface {
	Functions() []string
	Attributes() []string
	Keywords() []string
}

// Symbols is a fixed SymbolDictionary.
type Symbols struct {
	Funcs []string
	Attrs []string
	Words []string
}

// Functions implements SymbolDictionary.
func (s Symbols) Functions() []string { return s.Funcs }

// Attributes implements SymbolDictionary.
func (s Symbols) Attributes() []string { return s.Attrs }

// Keywords implements SymbolDictionary.
func (s Symbols) Keywords() []string { return s.Words }
