// schema.go - one-time column resolution for a table header.
//
// Column positions are resolved once per table read instead of scanning
// the header on every row access. "Header lacks this column" is an
// explicit boolean branch, not an error.
package schedule

// Schema maps column names to fixed offsets in a table's header.
// The first occurrence wins when a name repeats.
type Schema struct {
	columns map[string]int
	width   int
}

// ResolveSchema builds a Schema from a header row.
func ResolveSchema(header []string) Schema {
	s := Schema{columns: make(map[string]int, len(header)), width: len(header)}
	for i, name := range header {
		if _, seen := s.columns[name]; !seen {
			s.columns[name] = i
		}
	}
	return s
}

// Column returns the offset of a named column and whether it exists.
func (s Schema) Column(name string) (int, bool) {
	idx, ok := s.columns[name]
	return idx, ok
}

// Has reports whether the header carries the named column.
func (s Schema) Has(name string) bool {
	_, ok := s.columns[name]
	return ok
}

// Width returns the header length the schema was resolved from.
func (s Schema) Width() int {
	return s.width
}
