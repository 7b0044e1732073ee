package constants

// RenameStatus is the terminal state of one file in a run.
type RenameStatus string

// Stable values (stored as-is in the history journal).
const (
	StatusRenamed   RenameStatus = "RENAMED"   // file moved on disk
	StatusPlanned   RenameStatus = "PLANNED"   // dry-run: target computed, nothing moved
	StatusUnchanged RenameStatus = "UNCHANGED" // best suggestion equals the current name
	StatusSkipped   RenameStatus = "SKIPPED"   // declined interactively
	StatusFailed    RenameStatus = "FAILED"
	StatusReverted  RenameStatus = "REVERTED" // undone by a later undo
)
