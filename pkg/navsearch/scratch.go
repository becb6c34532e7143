package navsearch

import "math"

// scratch holds one search's working memory: the open-set heap, g/f/parent
// arrays, and the closed bitmap, all flat arrays of size W*H. It is pooled
// via sync.Pool in SearchEngine rather than allocated per call, so repeated
// searches reuse warm buffers.
type scratch struct {
	open   openHeap
	g      []float64
	f      []float64
	parent []int
	closed []bool
	size   int
}

func newScratch() *scratch {
	return &scratch{}
}

// ensureCapacity grows the flat buffers to n = W*H if needed, preserving
// (and reusing) existing capacity on shrink or re-entry at the same size.
func (s *scratch) ensureCapacity(n int) {
	if cap(s.g) < n {
		s.g = make([]float64, n)
		s.f = make([]float64, n)
		s.parent = make([]int, n)
		s.closed = make([]bool, n)
	} else {
		s.g = s.g[:n]
		s.f = s.f[:n]
		s.parent = s.parent[:n]
		s.closed = s.closed[:n]
	}
	s.size = n
}

// reset fills g/f with +Inf, parent with -1, closed with false, and empties
// the open heap, retaining buffer capacities.
func (s *scratch) reset(n int) {
	s.ensureCapacity(n)
	for i := 0; i < n; i++ {
		s.g[i] = math.Inf(1)
		s.f[i] = math.Inf(1)
		s.parent[i] = -1
		s.closed[i] = false
	}
	s.open = s.open[:0]
}
