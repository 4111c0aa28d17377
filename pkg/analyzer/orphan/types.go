package orphan

// Info describes a definition in the orphan or entry point lists.
type Info struct {
	Name     string `json:"name" toon:"name"`
	FullName string `json:"full_name" toon:"full_name"`
	File     string `json:"file" toon:"file"`
	Line     uint32 `json:"line" toon:"line"`
	Type     string `json:"type" toon:"type"`
	CalledBy int    `json:"called_by" toon:"called_by"`
}

// Summary provides aggregate statistics.
type Summary struct {
	TotalDefinitions int     `json:"total_definitions" toon:"total_definitions"`
	TotalOrphans     int     `json:"total_orphans" toon:"total_orphans"`
	OrphanPercentage float64 `json:"orphan_percentage" toon:"orphan_percentage"`
}

// Analysis is the orphan detection result for a whole run.
// TotalOrphans counts every orphan; the lists are truncated.
type Analysis struct {
	OrphanFunctions []Info  `json:"orphan_functions" toon:"orphan_functions"`
	OrphanClasses   []Info  `json:"orphan_classes" toon:"orphan_classes"`
	EntryPoints     []Info  `json:"entry_points" toon:"entry_points"`
	Summary         Summary `json:"summary" toon:"summary"`
}
