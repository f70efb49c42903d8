package reader

// Reader abstracts read-only access to a loaded derivation graph for CLI
// commands. All methods are read-only; loading happens once, at
// construction (see LoadJSONL), not per call.
type Reader interface {
	// InspectDerivation returns the detail view for one attribute path,
	// and false if the graph has no record for it.
	InspectDerivation(attributePath string) (*InspectDerivationResponse, bool)

	// ListDerivations returns a slice of every derivation in the graph,
	// sorted by attribute path, optionally filtered and capped per opts.
	ListDerivations(opts ListDerivationsOptions) []ListDerivationItem

	// Stats returns aggregate counts over the whole graph.
	Stats() *GraphStats
}

// defaultReader is the package-level reader instance. Commands call
// SetReader once, after loading the graph file named on the command line.
var defaultReader Reader = &JSONLReader{}

// SetReader sets the package-level reader instance.
func SetReader(r Reader) {
	defaultReader = r
}

// GetReader returns the current package-level reader instance.
func GetReader() Reader {
	return defaultReader
}

// InspectDerivation delegates to the package-level reader.
func InspectDerivation(attributePath string) (*InspectDerivationResponse, bool) {
	return defaultReader.InspectDerivation(attributePath)
}

// ListDerivations delegates to the package-level reader.
func ListDerivations(opts ListDerivationsOptions) []ListDerivationItem {
	return defaultReader.ListDerivations(opts)
}

// Stats delegates to the package-level reader.
func Stats() *GraphStats {
	return defaultReader.Stats()
}
