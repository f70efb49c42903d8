package reader

import "github.com/tweag/nixtract/types"

// computeStats aggregates a loaded record set into the typed GraphStats
// view, the read-path's shaping step: turning a pile of raw records into
// the fixed-shape contract `nixtract stats` renders.
func computeStats(records []*types.Record) *GraphStats {
	stats := &GraphStats{
		BuildInputTypeCounts: make(map[string]int),
		LicenseCounts:        make(map[string]int),
	}

	outputPaths := make(map[types.OutputPath]struct{})

	for _, rec := range records {
		stats.TotalDerivations++

		if rec.OutputPath != "" {
			outputPaths[rec.OutputPath] = struct{}{}
		}

		if rec.Src != nil {
			stats.DerivationsWithSrc++
		}
		if rec.NixpkgsMetadata != nil {
			if rec.NixpkgsMetadata.Broken {
				stats.BrokenDerivationsCount++
			}
			for _, l := range rec.NixpkgsMetadata.Licenses {
				key := l.SPDXID
				if key == "" {
					key = l.FullName
				}
				if key != "" {
					stats.LicenseCounts[key]++
				}
			}
		}

		for _, edge := range rec.BuildInputs {
			stats.TotalBuildInputEdges++
			stats.BuildInputTypeCounts[string(edge.BuildInputType)]++
			if edge.OutputPath == "" {
				stats.UnbuildableEdges++
			} else {
				outputPaths[edge.OutputPath] = struct{}{}
			}
		}
	}

	stats.UniqueOutputPaths = len(outputPaths)
	if len(stats.LicenseCounts) == 0 {
		stats.LicenseCounts = nil
	}
	return stats
}
