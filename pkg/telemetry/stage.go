package telemetry

// Stage is a symbolic event or counter id. Callers may define their own ids
// above [StageUserBase].
type Stage int

// Built-in stages.
const (
	StageMethodCall Stage = iota + 1
	StageMethodEntry
	StageMethodExit
	StageSequenceLength
	StageInternHit
	StageInternMiss
	StageInternPruned
	StageInternCancelled
	StageMemoReuse
	StageMemoRecompute
	StageDiagnosticsWritten
)

// StageUserBase is the first id free for application-defined stages.
const StageUserBase Stage = 64

// NameTable maps ids and mapped values to display names.
type NameTable map[int]string

var stageNames = map[Stage]string{
	StageMethodCall:         "Method Call",
	StageMethodEntry:        "Method Entry",
	StageMethodExit:         "Method Exit",
	StageSequenceLength:     "Sequence Length",
	StageInternHit:          "Intern Hit",
	StageInternMiss:         "Intern Miss",
	StageInternPruned:       "Intern Pruned",
	StageInternCancelled:    "Intern Cancelled",
	StageMemoReuse:          "Memo Reuse",
	StageMemoRecompute:      "Memo Recompute",
	StageDiagnosticsWritten: "Diagnostics Written",
}

// String returns the built-in display name, or "" for unknown stages.
func (s Stage) String() string { return stageNames[s] }

// StageNames returns a fresh name table holding the built-in stages.
func StageNames() NameTable {
	nt := make(NameTable, len(stageNames))
	for s, name := range stageNames {
		nt[int(s)] = name
	}

	return nt
}

// Merge returns a new table with other's entries layered over nt.
func (nt NameTable) Merge(other NameTable) NameTable {
	out := make(NameTable, len(nt)+len(other))

	for id, name := range nt {
		out[id] = name
	}

	for id, name := range other {
		out[id] = name
	}

	return out
}
