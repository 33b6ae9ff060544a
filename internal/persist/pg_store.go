package persist

import (
	"context"
	"fmt"

	"github.com/l1jgo/eventcopy/internal/world"
)

// PgStore keeps saved copy lists in the map_event_copies table, one row per
// copy ordered by seq.
type PgStore struct {
	db *DB
}

func NewPgStore(db *DB) *PgStore {
	return &PgStore{db: db}
}

// SaveCopies replaces the rows of mapID in a single transaction.
func (s *PgStore) SaveCopies(ctx context.Context, mapID int32, list []world.CopyParams) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save copies begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM map_event_copies WHERE map_id = $1`, mapID); err != nil {
		return fmt.Errorf("save copies clear map %d: %w", mapID, err)
	}
	for i, p := range list {
		if _, err := tx.Exec(ctx,
			`INSERT INTO map_event_copies (map_id, seq, src_map_id, src_event_id, x, y, des_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			mapID, i, p.SrcMapID, p.SrcEventID, p.X, p.Y, p.DesID,
		); err != nil {
			return fmt.Errorf("save copies insert map %d: %w", mapID, err)
		}
	}
	return tx.Commit(ctx)
}

// LoadAll loads every saved list. Called at server startup.
func (s *PgStore) LoadAll(ctx context.Context) (map[int32][]world.CopyParams, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT map_id, src_map_id, src_event_id, x, y, des_id
		 FROM map_event_copies ORDER BY map_id, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int32][]world.CopyParams)
	for rows.Next() {
		var mapID int32
		var p world.CopyParams
		if err := rows.Scan(&mapID, &p.SrcMapID, &p.SrcEventID, &p.X, &p.Y, &p.DesID); err != nil {
			return nil, err
		}
		out[mapID] = append(out[mapID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close is a no-op; the pool belongs to DB.
func (s *PgStore) Close() error { return nil }
