package persist

import (
	"context"
	"fmt"
)

// JournalEntry is one copy lifecycle record.
type JournalEntry struct {
	Op         string // "copy" or "erase"
	MapID      int32
	EventID    int32
	SrcMapID   int32
	SrcEventID int32
	Reused     bool
}

// JournalRepo appends copy lifecycle records to event_copy_journal.
type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Write atomically writes a batch of entries in a single transaction.
func (r *JournalRepo) Write(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_copy_journal (op, map_id, event_id, src_map_id, src_event_id, reused)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.Op, e.MapID, e.EventID, e.SrcMapID, e.SrcEventID, e.Reused,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}
