package engine

import (
	"container/heap"
)

// pathNode is one A* search node: a tile position plus its parent chain
// (for path reconstruction) and cost terms g (distance so far) and h
// (heuristic distance to goal).
type pathNode struct {
	tile   [2]int
	parent *pathNode
	g, h   int
}

func (n *pathNode) cost() int { return n.g + n.h }

// pathHeap is a standard container/heap min-heap ordered by cost(),
// equivalent to the original's reversed `operator<` (cost() > other.cost())
// paired with std::push_heap, which also produces a min-heap by cost.
type pathHeap []*pathNode

func (h pathHeap) Len() int            { return len(h) }
func (h pathHeap) Less(i, j int) bool  { return h[i].cost() < h[j].cost() }
func (h pathHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x any)         { *h = append(*h, x.(*pathNode)) }
func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Move_Object_To retry timing (milliseconds), matching the original's
// "recompute soon after a collision, otherwise every 5s" backoff.
const (
	pathRetryAfterMove = 1000
	pathRetryAlways    = 5000
)

// Pathfinder runs tile-level A* from object's current tile to Dest,
// recomputing incrementally via Step so long searches don't stall a
// frame (spec §4.4).
type Pathfinder struct {
	m       *Map
	object  *MapObject
	dest    [2]int
	rangeTiles int
	getClose bool
	checkType CollisionCheckType

	open   pathHeap
	closed map[[2]int]*pathNode
	nearest *pathNode
	found   bool
	goalNode *pathNode

	collisionCounter int
}

// NewPathfinder creates a pathfinder for object to move to dest (world
// coordinates), honoring range (acceptable distance from dest) and
// getClose (whether to fall back to the nearest reachable tile).
func NewPathfinder(m *Map, object *MapObject, dest Vec2, rangeTiles int, getClose bool, checkType CollisionCheckType) *Pathfinder {
	tw, th := m.TileWidth, m.TileHeight
	start := tilePos(object.Position, tw, th)
	goal := tilePos(dest, tw, th)

	startNode := &pathNode{tile: start, h: chebyshev(start, goal)}
	p := &Pathfinder{
		m: m, object: object,
		dest: goal, rangeTiles: rangeTiles, getClose: getClose, checkType: checkType,
		closed:  make(map[[2]int]*pathNode),
		nearest: startNode,
	}
	p.goalNode = &pathNode{tile: goal}
	heap.Push(&p.open, startNode)
	return p
}

func tilePos(pos Vec2, tw, th int) [2]int {
	return [2]int{int(pos.X) / tw, int(pos.Y) / th}
}

func chebyshev(a, b [2]int) int {
	dx := a[0] - b[0]
	if dx < 0 {
		dx = -dx
	}
	dy := a[1] - b[1]
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// IsFound reports whether a path to the goal (or, with getClose, the
// best reachable tile) has been found.
func (p *Pathfinder) IsFound() bool { return p.found }

// Step runs one iteration of the search: pop the best open node, close
// it, and expand its passable neighbours. Call repeatedly until IsFound
// or the open set is exhausted.
func (p *Pathfinder) Step() {
	if p.found || len(p.open) == 0 {
		return
	}
	current := heap.Pop(&p.open).(*pathNode)
	if _, closed := p.closed[current.tile]; closed {
		return
	}
	p.closed[current.tile] = current

	if current.h < p.nearest.h {
		p.nearest = current
	}
	if chebyshev(current.tile, p.dest) <= p.rangeTiles {
		p.found = true
		p.nearest = current
		return
	}

	for _, d := range eightDirections {
		neighborTile := [2]int{current.tile[0] + d.dx, current.tile[1] + d.dy}
		if _, closed := p.closed[neighborTile]; closed {
			continue
		}
		neighborPos := Vec2{
			X: float64(neighborTile[0]*p.m.TileWidth) + p.object.BoundingBox().X,
			Y: float64(neighborTile[1]*p.m.TileHeight) + p.object.BoundingBox().Y,
		}
		rec := p.m.Passable(p.object, d.dir, neighborPos, 0, p.checkType)
		if !rec.Passable() && !p.object.Passthrough {
			continue
		}

		h := chebyshev(neighborTile, p.dest)
		g := current.g + 1
		if d.dir.IsDiagonal() && current.parent != nil {
			prevDir := directionBetween(current.parent.tile, current.tile)
			if prevDir != d.dir {
				h++
			}
		}
		heap.Push(&p.open, &pathNode{tile: neighborTile, parent: current, g: g, h: h})
	}

	if len(p.open) == 0 && p.getClose {
		p.found = true
	}
}

// Run executes Step until the search terminates, bounded by maxSteps to
// guard against pathological maps with no route and getClose disabled.
func (p *Pathfinder) Run(maxSteps int) {
	for i := 0; i < maxSteps && !p.found && len(p.open) > 0; i++ {
		p.Step()
	}
}

// GeneratePath walks the winning node's parent chain back to the start
// and returns the resulting sequence of Directions, start to goal.
func (p *Pathfinder) GeneratePath() []Direction {
	if p.nearest == nil {
		return nil
	}
	var nodes []*pathNode
	for n := p.nearest; n != nil; n = n.parent {
		nodes = append(nodes, n)
	}
	// nodes is goal->start; reverse and diff consecutive tiles.
	dirs := make([]Direction, 0, len(nodes)-1)
	for i := len(nodes) - 1; i > 0; i-- {
		dirs = append(dirs, directionBetween(nodes[i].tile, nodes[i-1].tile))
	}
	return dirs
}

func directionBetween(from, to [2]int) Direction {
	var d Direction
	switch {
	case to[0] > from[0]:
		d |= DirRight
	case to[0] < from[0]:
		d |= DirLeft
	}
	switch {
	case to[1] > from[1]:
		d |= DirDown
	case to[1] < from[1]:
		d |= DirUp
	}
	return d
}

var eightDirections = []struct {
	dx, dy int
	dir    Direction
}{
	{0, -1, DirUp},
	{0, 1, DirDown},
	{-1, 0, DirLeft},
	{1, 0, DirRight},
	{-1, -1, DirUp | DirLeft},
	{1, -1, DirUp | DirRight},
	{-1, 1, DirDown | DirLeft},
	{1, 1, DirDown | DirRight},
}
