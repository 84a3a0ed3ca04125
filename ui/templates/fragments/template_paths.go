// Package fragments provides the names of the page templates and the fragments they define
package fragments

// Template names
const (
	Index = "index.html"

	// Fragments re-rendered after edits
	Grid       = "grid"
	Statistics = "statistics"
)
