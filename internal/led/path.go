package led

// Path is a cyclic sequence of logical positions, each mapped to one LED of a
// canvas. Positions wrap around, so Node(Size()) is Node(0).
type Path struct {
	canvas *Canvas
	nodes  []int
}

// NewPath creates an empty path over the given canvas.
func NewPath(canvas *Canvas) *Path {
	return &Path{canvas: canvas}
}

// NewLinearPath creates a path visiting every LED of the canvas in order.
func NewLinearPath(canvas *Canvas) *Path {
	nodes := make([]int, canvas.Len())
	for i := range nodes {
		nodes[i] = i
	}
	return &Path{canvas: canvas, nodes: nodes}
}

// SetNodes replaces the node list. The slice is copied.
func (p *Path) SetNodes(nodes []int) {
	p.nodes = append(p.nodes[:0], nodes...)
}

// Size returns the number of positions in the path.
func (p *Path) Size() int { return len(p.nodes) }

// Node returns the canvas index of logical position i, wrapping around in
// both directions. It returns -1 for an empty path, which every canvas
// accessor ignores.
func (p *Path) Node(i int) int {
	n := len(p.nodes)
	if n == 0 {
		return -1
	}
	i %= n
	if i < 0 {
		i += n
	}
	return p.nodes[i]
}

// Canvas returns the canvas the path draws on.
func (p *Path) Canvas() *Canvas { return p.canvas }
