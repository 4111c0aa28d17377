package callgraph

// Kind distinguishes function and class definitions.
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
)

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// Definition is a function or class declared in some file.
type Definition struct {
	QualifiedName string `json:"full_name" toon:"full_name"`
	Name          string `json:"name" toon:"name"`
	Kind          Kind   `json:"type" toon:"type"`
	File          string `json:"file" toon:"file"`
	Line          uint32 `json:"line" toon:"line"`
}

// QualifiedName builds the registry key for a definition.
func QualifiedName(file, name string) string {
	return file + "::" + name
}

// Edge is a resolved call from caller to callee, by qualified name.
type Edge struct {
	From string `json:"from" toon:"from"`
	To   string `json:"to" toon:"to"`
}

// Summary holds graph size counts.
type Summary struct {
	TotalNodes     int `json:"total_nodes" toon:"total_nodes"`
	TotalEdges     int `json:"total_edges" toon:"total_edges"`
	TotalFunctions int `json:"total_functions" toon:"total_functions"`
	TotalClasses   int `json:"total_classes" toon:"total_classes"`
	SkippedFiles   int `json:"skipped_files" toon:"skipped_files"`
}

// Report is the serializable view of a call graph.
type Report struct {
	Nodes   []Definition `json:"nodes" toon:"nodes"`
	Edges   []Edge       `json:"edges" toon:"edges"`
	Summary Summary      `json:"summary" toon:"summary"`
}
