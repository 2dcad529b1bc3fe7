// Package planner implements 4-connected A* shortest paths on the grid.
package planner

import (
	"container/heap"
	"errors"

	"github.com/kilianp07/robocharge/core/grid"
)

// ErrNoPath is returned when the goal is unreachable under the blocked set.
var ErrNoPath = errors.New("no path to goal")

type node struct {
	coord grid.Coord
	g     int
	h     int
	seq   int // insertion order, breaks f/h ties deterministically
	index int
}

func (n *node) f() int { return n.g + n.h }

type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f() != h[j].f() {
		return h[i].f() < h[j].f()
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *nodeHeap) Push(x any) {
	n := x.(*node)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// Plan finds the shortest 4-connected path from start to goal with unit step
// cost and the Manhattan heuristic. Cells in blocked are not entered, except
// the goal itself. The returned path includes both endpoints.
func Plan(g *grid.Grid, start, goal grid.Coord, blocked map[grid.Coord]struct{}) ([]grid.Coord, error) {
	if !g.IsWalkable(goal) {
		return nil, ErrNoPath
	}
	if start == goal {
		return []grid.Coord{start}, nil
	}

	open := &nodeHeap{}
	heap.Init(open)
	seq := 0
	gScore := map[grid.Coord]int{start: 0}
	cameFrom := map[grid.Coord]grid.Coord{}
	closed := map[grid.Coord]struct{}{}

	heap.Push(open, &node{coord: start, g: 0, h: grid.Manhattan(start, goal), seq: seq})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if cur.coord == goal {
			return reconstruct(cameFrom, goal), nil
		}
		if _, done := closed[cur.coord]; done {
			continue
		}
		closed[cur.coord] = struct{}{}

		for _, nb := range g.Neighbors4(cur.coord) {
			if _, done := closed[nb]; done {
				continue
			}
			if _, isBlocked := blocked[nb]; isBlocked && nb != goal {
				continue
			}
			tentative := cur.g + 1
			if best, seen := gScore[nb]; seen && tentative >= best {
				continue
			}
			gScore[nb] = tentative
			cameFrom[nb] = cur.coord
			seq++
			heap.Push(open, &node{coord: nb, g: tentative, h: grid.Manhattan(nb, goal), seq: seq})
		}
	}
	return nil, ErrNoPath
}

func reconstruct(cameFrom map[grid.Coord]grid.Coord, goal grid.Coord) []grid.Coord {
	path := []grid.Coord{goal}
	cur := goal
	for {
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		path = append(path, prev)
		cur = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
