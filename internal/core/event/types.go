package event

// Diagnostic events emitted by the copy pipeline. They carry plain ids so
// that any package can emit them without importing game state.

// CopyMaterialized is emitted when a copy request turned into a live event.
type CopyMaterialized struct {
	MapID      int32
	EventID    int32
	SrcMapID   int32
	SrcEventID int32
	Reused     bool // drawn from the retired pool
	Evicted    bool // replaced a live occupant of the same id
}

// CopyFailed is emitted when a request is dropped from the copy queue.
type CopyFailed struct {
	MapID      int32
	SrcMapID   int32
	SrcEventID int32
	Err        error
}

// CopyErased is emitted when a copied event is retired into the pool.
type CopyErased struct {
	MapID   int32
	EventID int32
}

// LoadSuperseded is emitted by the single-slot loader when a load result
// arrives for a map that is no longer tracked and is discarded.
type LoadSuperseded struct {
	MapID int32 // the discarded map
	By    int32 // the map tracked when the result landed
}

// LoadStalled is emitted once per stall when the head of the copy queue has
// waited on its source map longer than the configured threshold.
type LoadStalled struct {
	MapID    int32
	SrcMapID int32
	Ticks    int
}

type MapEntered struct {
	MapID    int32
	Replayed int
}

type MapExited struct {
	MapID int32
	Saved int
}
