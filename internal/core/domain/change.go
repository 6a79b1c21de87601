package domain

import "time"

// ChangeKind represents the type of file system change.
type ChangeKind uint8

const (
	// ChangeCreated indicates a file was created.
	ChangeCreated ChangeKind = iota
	// ChangeModified indicates a file was modified.
	ChangeModified
	// ChangeDeleted indicates a file was deleted.
	ChangeDeleted
	// ChangeRenamed indicates a file was renamed.
	ChangeRenamed
)

// String returns a human-readable name for the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	case ChangeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a single file system change observed by the watcher.
// Events are ephemeral: produced once, consumed once by the coordinator.
type ChangeEvent struct {
	// Path is the absolute path of the file that changed.
	Path InternedString
	// Kind is the type of change that occurred.
	Kind ChangeKind
	// Timestamp is when the change was observed.
	Timestamp time.Time
}
