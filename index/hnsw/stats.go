package hnsw

// Stats summarizes the shape of the graph.
type Stats struct {
	Nodes      int
	Edges      int
	TopLevel   int
	EntryPoint uint32
	// LevelCounts[l] is the number of nodes present on layer l.
	LevelCounts []int
	// MaxDegree is the largest layer-0 neighbor count.
	MaxDegree int
}

// Stats returns graph statistics.
func (h *HNSW) Stats() Stats {
	s := Stats{
		Nodes:       h.count,
		TopLevel:    h.topLevel,
		EntryPoint:  h.entry,
		LevelCounts: make([]int, h.topLevel+1),
	}
	for _, layers := range h.links {
		for l, conns := range layers {
			s.LevelCounts[l]++
			s.Edges += len(conns)
		}
		if len(layers) > 0 {
			s.MaxDegree = max(s.MaxDegree, len(layers[0]))
		}
	}
	return s
}
