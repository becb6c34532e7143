package navsearch

// openNode is one entry in the A* open-set min-heap, keyed on f = g + h.
// index stores the cell's flat index (gy*width+gx) into the scratch
// buffers, not a heap position.
type openNode struct {
	index int
	f     float64
}

// openHeap implements container/heap.Interface, ordered on f alone. No
// tie-break field is kept: container/heap is not stable, so nodes with equal
// f pop in whatever order the sift operations leave them, which is not
// necessarily insertion order.
type openHeap []openNode

func (h openHeap) Len() int            { return len(h) }
func (h openHeap) Less(i, j int) bool  { return h[i].f < h[j].f }
func (h openHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x interface{}) { *h = append(*h, x.(openNode)) }
func (h *openHeap) Pop() interface{} {
	old := *h
	n := len(old)
	node := old[n-1]
	*h = old[:n-1]
	return node
}
