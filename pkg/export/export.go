package export

// Field is one label/value pair rendered above the tables.
type Field struct {
	Label string
	Value string
}

// Section is one table with a heading, e.g. a semester slot.
type Section struct {
	Heading string
	Headers []string
	Rows    [][]string
}

// Document defines the exportable content: a title, a preamble of student
// fields and one table section per semester slot.
type Document struct {
	Title    string
	Preamble []Field
	Sections []Section
}
