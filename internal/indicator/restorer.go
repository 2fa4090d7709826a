package indicator

import (
	"context"
	"log"
	"time"

	"swing-scannerv1/internal/model"
)

// Restorer orchestrates engine-set state restoration on startup and
// periodic checkpointing. Restore priority: snapshot store → cold start.
type Restorer struct {
	cfg   Config
	store model.SnapshotStore
}

// NewRestorer creates a Restorer backed by the given snapshot store.
// A nil store always cold-starts.
func NewRestorer(cfg Config, store model.SnapshotStore) *Restorer {
	return &Restorer{cfg: cfg, store: store}
}

// Restore loads the latest persisted snapshot and rebuilds the engine set
// from it. Any failure falls back to a cold start; a cold engine just
// needs its warm-up window replayed from raw history.
func (r *Restorer) Restore(ctx context.Context) *Set {
	if r.store == nil {
		return NewSet(r.cfg)
	}

	data, err := r.store.ReadLatestSnapshotJSON(ctx)
	if err != nil || data == nil {
		log.Println("[restorer] no snapshot found; cold starting engine set")
		return NewSet(r.cfg)
	}

	snap, err := UnmarshalEngineSnapshot(data)
	if err != nil {
		log.Printf("[restorer] WARNING: snapshot decode failed: %v; cold starting", err)
		return NewSet(r.cfg)
	}
	if snap.Version != snapshotVersion {
		log.Printf("[restorer] WARNING: snapshot schema version %d (want %d); cold starting",
			snap.Version, snapshotVersion)
		return NewSet(r.cfg)
	}

	set, err := RestoreSet(r.cfg, snap)
	if err != nil {
		log.Printf("[restorer] WARNING: snapshot restore failed: %v; cold starting", err)
		return NewSet(r.cfg)
	}

	log.Printf("[restorer] restored engine set from snapshot (version=%d, instruments=%d)",
		snap.Version, len(snap.Instruments))
	return set
}

// Checkpoint persists the current engine-set state.
func (r *Restorer) Checkpoint(ctx context.Context, set *Set) error {
	if r.store == nil {
		return nil
	}
	snap := set.Snapshot()
	snap.TakenAt = time.Now().UTC()
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	return r.store.SaveSnapshotJSON(ctx, data)
}
