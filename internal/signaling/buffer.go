package signaling

// CandidateBuffer holds remote candidates that arrived before the remote
// description was set. FIFO and unbounded; only the engine loop touches it.
type CandidateBuffer struct {
	items []Candidate
}

// Push appends c, keeping arrival order.
func (b *CandidateBuffer) Push(c Candidate) {
	b.items = append(b.items, c)
}

// Len returns the number of pending candidates.
func (b *CandidateBuffer) Len() int {
	return len(b.items)
}

// Drain returns every pending candidate in arrival order and empties the
// buffer.
func (b *CandidateBuffer) Drain() []Candidate {
	items := b.items
	b.items = nil
	return items
}
