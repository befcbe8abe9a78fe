package render

// frameResult is one computed frame, keyed by its index in the output
// stream.
type frameResult struct {
	index int
	data  []byte
}

// frameHeap is a min-heap over frame indices. Workers finish frames out of
// order; the heap lets the writer hand them to the encoder strictly in
// order.
type frameHeap []*frameResult

func (h frameHeap) Len() int           { return len(h) }
func (h frameHeap) Less(i, j int) bool { return h[i].index < h[j].index }
func (h frameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *frameHeap) Push(x any) {
	*h = append(*h, x.(*frameResult))
}

func (h *frameHeap) Pop() any {
	old := *h
	n := len(old)
	res := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return res
}
