package world

// CopyQueue is the FIFO of pending copy requests of one map.
type CopyQueue struct {
	items []CopyParams
}

func (q *CopyQueue) Push(p CopyParams) {
	q.items = append(q.items, p)
}

// Head returns the oldest request without removing it.
func (q *CopyQueue) Head() (CopyParams, bool) {
	if len(q.items) == 0 {
		return CopyParams{}, false
	}
	return q.items[0], true
}

func (q *CopyQueue) Pop() (CopyParams, bool) {
	p, ok := q.Head()
	if !ok {
		return p, false
	}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return p, true
}

func (q *CopyQueue) Len() int { return len(q.items) }

// Items returns a copy of the pending requests, oldest first.
func (q *CopyQueue) Items() []CopyParams {
	out := make([]CopyParams, len(q.items))
	copy(out, q.items)
	return out
}
