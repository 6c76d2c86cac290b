// Package roads plans a settlement's road network: a trunk highway along the
// doors' principal axis and one spur from every door to the highway.
package roads

import (
	"container/heap"

	"github.com/talgya/settler/internal/world"
)

// Path is an ordered run of road cells.
type Path []world.Vec3

// Obstacles is a set of columns a road may not cross.
type Obstacles map[world.Column]struct{}

// Add marks a column as blocked.
func (o Obstacles) Add(c world.Column) { o[c] = struct{}{} }

// Remove clears a column.
func (o Obstacles) Remove(c world.Column) { delete(o, c) }

// Has reports whether a column is blocked.
func (o Obstacles) Has(c world.Column) bool {
	_, ok := o[c]
	return ok
}

// elevationWeight is the cost of one block of vertical movement, relative to
// one block of horizontal movement.
const elevationWeight = 2

// node is one search state. Nodes live in an arena and refer to their parent
// by index; the root has parent -1.
type node struct {
	pos    world.Vec3
	parent int
	g      int // steps from the start
	h      int // Manhattan X+Z distance to the goal
	elev   int // accumulated elevation penalty
	seq    int // insertion order, breaks f ties
}

func (n *node) f() int { return n.g + n.h + n.elev }

type frontier struct {
	nodes []node
	items []int // arena indices
}

func (q *frontier) Len() int { return len(q.items) }
func (q *frontier) Less(i, j int) bool {
	a, b := &q.nodes[q.items[i]], &q.nodes[q.items[j]]
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	return a.seq < b.seq
}
func (q *frontier) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *frontier) Push(x any)   { q.items = append(q.items, x.(int)) }
func (q *frontier) Pop() any {
	old := q.items
	n := len(old)
	x := old[n-1]
	q.items = old[:n-1]
	return x
}

// FindPath searches from start to goal over 4-connected columns, following the
// terrain surface: a step's Y is always Surface(x, z) of the column it enters.
// Each step costs 1 plus 2 per block of height change; the heuristic is the
// X+Z Manhattan distance, so the search is greedy rather than optimal once
// elevation is involved.
//
// The returned path excludes both start and goal. ok is false when the goal
// cannot be reached; that is not an error.
//
// A column already waiting in the open set is never re-evaluated, even when a
// cheaper route to it turns up later.
func FindPath(hf *world.HeightField, start, goal world.Vec3, obstacles Obstacles) (Path, bool) {
	goalCol := goal.Column()
	q := &frontier{}
	push := func(pos world.Vec3, parent int) {
		n := node{
			pos:    pos,
			parent: parent,
			h:      world.Manhattan(pos.Column(), goalCol),
			seq:    len(q.nodes),
		}
		if parent >= 0 {
			p := &q.nodes[parent]
			n.g = p.g + 1
			n.elev = p.elev + elevationWeight*abs(p.pos.Y-pos.Y)
		}
		q.nodes = append(q.nodes, n)
		heap.Push(q, len(q.nodes)-1)
	}

	open := map[world.Column]struct{}{start.Column(): {}}
	closed := make(map[world.Column]struct{})
	push(start, -1)

	for q.Len() > 0 {
		cur := heap.Pop(q).(int)
		curPos := q.nodes[cur].pos
		delete(open, curPos.Column())

		if q.nodes[cur].h == 0 {
			return backtrack(q.nodes, cur), true
		}
		closed[curPos.Column()] = struct{}{}

		for _, nc := range curPos.Column().Neighbors() {
			y, err := hf.Surface(nc.X, nc.Z)
			if err != nil {
				continue // outside the loaded region
			}
			if obstacles.Has(nc) {
				continue
			}
			if _, ok := closed[nc]; ok {
				continue
			}
			if _, ok := open[nc]; ok {
				continue
			}
			open[nc] = struct{}{}
			push(world.Vec3{X: nc.X, Y: y, Z: nc.Z}, cur)
		}
	}
	return nil, false
}

// backtrack walks from the goal's parent up to, but not including, the root.
func backtrack(nodes []node, goal int) Path {
	var path Path
	for i := nodes[goal].parent; i >= 0 && nodes[i].parent >= 0; i = nodes[i].parent {
		path = append(path, nodes[i].pos)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// Cost returns the g + elevation cost of walking the cells in order.
func Cost(cells []world.Vec3) int {
	total := 0
	for i := 1; i < len(cells); i++ {
		total += 1 + elevationWeight*abs(cells[i].Y-cells[i-1].Y)
	}
	return total
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
