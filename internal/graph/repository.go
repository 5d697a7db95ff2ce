package graph

import "context"

// Repository provides graph snapshots from a backing store.
type Repository interface {
	// LoadSnapshot reads the full node/edge set and builds a fresh snapshot.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// Writer persists snapshots to a backing store.
type Writer interface {
	// StoreSnapshot writes every node and edge of the snapshot.
	StoreSnapshot(ctx context.Context, s *Snapshot) error
}
