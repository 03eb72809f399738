package eval

// AttributeContext resolves identifier references at evaluation time. A rule
// never binds attributes itself; the caller supplies whatever universe of
// names the rule runs against, and resolution is late so the same compiled
// tree serves every record.
type AttributeContext interface {
	// Attribute returns the value bound to a dotted attribute path.
	Attribute(name string) (Value, bool)
}

// MapContext is an AttributeContext backed by a plain map.
type MapContext map[string]Value

// Attribute implements AttributeContext.
func (m MapContext) Attribute(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}
