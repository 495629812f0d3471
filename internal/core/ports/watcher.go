package ports

import (
	"context"
	"iter"
)

// WatchOp classifies a file system change.
type WatchOp int

const (
	// OpCreate indicates a file was created.
	OpCreate WatchOp = iota
	// OpModify indicates a file's content changed.
	OpModify
	// OpRemove indicates a file was removed or renamed away.
	OpRemove
)

// WatchEvent is a single file system change notification.
type WatchEvent struct {
	Path      string
	Operation WatchOp
}

// Watcher delivers recursive directory change notifications used to drive
// track-on-create and invalidate-on-modify.
type Watcher interface {
	// Start begins watching the given root directory recursively.
	Start(ctx context.Context, root string) error

	// Stop stops the watcher and releases all resources.
	Stop() error

	// Events returns an iterator of file system events.
	Events() iter.Seq[WatchEvent]
}
