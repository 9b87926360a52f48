package archive

import "clonecore/pkg/domain"

// Plan fixes the opening extraction strategy for one archive against one
// destination, decided from a pre-scan before anything touches disk.
type Plan struct {
	Strategy domain.ExtractionStrategy
	// DestDir is the absolute requested destination.
	DestDir string
	// LongestEntry is the longest normalized relative path in the archive.
	LongestEntry int
	// WorstCase is the longest final path a direct extraction would create:
	// destination, separator, longest entry.
	WorstCase int
}

// PlanFor picks the opening strategy. Direct extraction needs the worst-case
// final path to fit the limit. Short-name staging needs at least the
// destination directory itself to fit, since files still land there after
// the move. When the destination alone breaks the limit, only the root
// fallback remains.
func PlanFor(destDir string, longestEntry, pathLimit int) Plan {
	p := Plan{
		DestDir:      destDir,
		LongestEntry: longestEntry,
		WorstCase:    len(destDir) + 1 + longestEntry,
	}
	switch {
	case p.WorstCase <= pathLimit:
		p.Strategy = domain.StrategyDirect
	case len(destDir) < pathLimit:
		p.Strategy = domain.StrategyStagedShort
	default:
		p.Strategy = domain.StrategyStagedRoot
	}
	return p
}
