package domain

// ExtractionStrategy names one state of the extraction fallback chain.
// Escalation moves strictly forward: Direct -> StagedShort -> StagedRoot ->
// Failed, advancing only when the current strategy cannot place files, and
// stopping at the first strategy that succeeds.
type ExtractionStrategy string

// Extraction strategies in escalation order.
const (
	// StrategyDirect extracts straight into the requested destination.
	StrategyDirect ExtractionStrategy = "direct"
	// StrategyStagedShort stages under the temp area in a short hashed
	// directory, then moves files into the destination.
	StrategyStagedShort ExtractionStrategy = "staged-short-name"
	// StrategyStagedRoot stages under the filesystem root with an even
	// shorter hashed name; the final location differs from the requested
	// destination and callers must use the returned actual path.
	StrategyStagedRoot ExtractionStrategy = "staged-root-fallback"
	// StrategyFailed marks an exhausted chain.
	StrategyFailed ExtractionStrategy = "failed"
)

// Next returns the strategy to escalate to when the current one cannot
// place files.
func (s ExtractionStrategy) Next() ExtractionStrategy {
	switch s {
	case StrategyDirect:
		return StrategyStagedShort
	case StrategyStagedShort:
		return StrategyStagedRoot
	default:
		return StrategyFailed
	}
}

// Terminal reports whether the chain has no further fallback.
func (s ExtractionStrategy) Terminal() bool { return s == StrategyFailed }

// Staged reports whether the strategy extracts through a staging directory.
func (s ExtractionStrategy) Staged() bool {
	return s == StrategyStagedShort || s == StrategyStagedRoot
}

// EntryFailure records one archive entry that could not be placed.
type EntryFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ExtractionResult is the structured outcome of one extraction call.
// Partial success is a valid outcome: Failures lists the entries that could
// not be placed while the rest were.
type ExtractionResult struct {
	Strategy     ExtractionStrategy `json:"strategy"`
	RequestedDir string             `json:"requested_dir"`
	ActualDir    string             `json:"actual_dir"`
	Relocated    bool               `json:"relocated"`
	Extracted    int                `json:"extracted"`
	Failures     []EntryFailure     `json:"failures,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// Failed reports whether nothing was extracted at all.
func (r ExtractionResult) Failed() bool {
	return r.Strategy == StrategyFailed || (r.Extracted == 0 && len(r.Failures) > 0)
}

// Partial reports whether some entries were placed and some were not.
func (r ExtractionResult) Partial() bool {
	return r.Extracted > 0 && len(r.Failures) > 0
}
