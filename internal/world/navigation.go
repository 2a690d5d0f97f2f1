package world

import (
	"container/heap"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/geom"
)

type navNeighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var navNeighborOffsets = [...]navNeighbor{
	{col: 0, row: -1, cost: 1},
	{col: 1, row: 0, cost: 1},
	{col: 0, row: 1, cost: 1},
	{col: -1, row: 0, cost: 1},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

type navPoint struct {
	col int
	row int
}

// navGrid marks cells whose centre can hold an actor footprint without
// touching a blocking obstacle or the map edge.
type navGrid struct {
	cols, rows int
	cellSize   float64
	walkable   []bool
	width      float64
	height     float64
}

func newNavGrid(obstacles []Obstacle, width, height, cellSize float64) *navGrid {
	if cellSize <= 0 {
		cellSize = DefaultNavCellSize
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	grid := &navGrid{
		cols:     cols,
		rows:     rows,
		cellSize: cellSize,
		walkable: make([]bool, cols*rows),
		width:    width,
		height:   height,
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cx := (float64(col) + 0.5) * cellSize
			cy := (float64(row) + 0.5) * cellSize
			if cx < ActorRadius || cx > width-ActorRadius || cy < ActorRadius || cy > height-ActorRadius {
				continue
			}
			blocked := false
			for _, obs := range obstacles {
				if !obs.blocksMovement() {
					continue
				}
				if circleRectOverlap(cx, cy, ActorRadius, obs) {
					blocked = true
					break
				}
			}
			grid.walkable[row*cols+col] = !blocked
		}
	}

	return grid
}

func (g *navGrid) inBounds(col, row int) bool {
	return g != nil && col >= 0 && row >= 0 && col < g.cols && row < g.rows
}

func (g *navGrid) index(col, row int) int {
	return row*g.cols + col
}

func (g *navGrid) isWalkable(col, row int) bool {
	return g.inBounds(col, row) && g.walkable[g.index(col, row)]
}

func (g *navGrid) worldPos(col, row int) mgl64.Vec3 {
	return mgl64.Vec3{
		(float64(col) + 0.5) * g.cellSize,
		(float64(row) + 0.5) * g.cellSize,
		0,
	}
}

// canTraverseDiagonal forbids corner cutting past blocked orthogonal cells.
func (g *navGrid) canTraverseDiagonal(current navPoint, delta navNeighbor) bool {
	if !delta.diagonal {
		return true
	}
	return g.isWalkable(current.col+delta.col, current.row) &&
		g.isWalkable(current.col, current.row+delta.row)
}

func (g *navGrid) locate(x, y float64) (int, int, bool) {
	if g == nil || g.cols == 0 || g.rows == 0 {
		return 0, 0, false
	}
	clampedX := geom.Clamp(x, 0, math.Max(g.width-1, 0))
	clampedY := geom.Clamp(y, 0, math.Max(g.height-1, 0))
	col := int(clampedX / g.cellSize)
	row := int(clampedY / g.cellSize)
	if !g.inBounds(col, row) {
		return 0, 0, false
	}
	return col, row, true
}

// closestWalkable runs a breadth-first search outward from the given cell.
func (g *navGrid) closestWalkable(col, row int) (int, int, bool) {
	if !g.inBounds(col, row) {
		return 0, 0, false
	}
	visited := make([]bool, len(g.walkable))
	queue := []navPoint{{col: col, row: row}}
	visited[g.index(col, row)] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if g.walkable[g.index(current.col, current.row)] {
			return current.col, current.row, true
		}
		for _, delta := range navNeighborOffsets {
			nc := current.col + delta.col
			nr := current.row + delta.row
			if !g.inBounds(nc, nr) {
				continue
			}
			idx := g.index(nc, nr)
			if visited[idx] {
				continue
			}
			visited[idx] = true
			queue = append(queue, navPoint{col: nc, row: nr})
		}
	}
	return 0, 0, false
}

func (g *navGrid) heuristic(a, b navPoint) float64 {
	dx := math.Abs(float64(a.col - b.col))
	dy := math.Abs(float64(a.row - b.row))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

type pathNode struct {
	point  navPoint
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int           { return len(pq) }
func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (g *navGrid) astar(start, goal navPoint) ([]navPoint, bool) {
	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{point: start, f: g.heuristic(start, goal)})
	gScore := map[int]float64{g.index(start.col, start.row): 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		currIdx := g.index(current.point.col, current.point.row)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.point == goal {
			return reconstructPath(current), true
		}

		for _, delta := range navNeighborOffsets {
			if !g.canTraverseDiagonal(current.point, delta) {
				continue
			}
			next := navPoint{col: current.point.col + delta.col, row: current.point.row + delta.row}
			if !g.isWalkable(next.col, next.row) {
				continue
			}
			idx := g.index(next.col, next.row)
			if _, seen := closed[idx]; seen {
				continue
			}
			tentativeG := current.g + delta.cost
			if prev, ok := gScore[idx]; ok && tentativeG >= prev {
				continue
			}
			gScore[idx] = tentativeG
			heap.Push(open, &pathNode{
				point:  next,
				g:      tentativeG,
				f:      tentativeG + g.heuristic(next, goal),
				parent: current,
			})
		}
	}
	return nil, false
}

func reconstructPath(end *pathNode) []navPoint {
	path := make([]navPoint, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.point)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// findPath returns waypoints from start to target, excluding the start cell.
// The final waypoint is the target itself. An unwalkable start snaps to the
// nearest walkable cell; an unwalkable goal fails.
func (g *navGrid) findPath(start, target mgl64.Vec3) ([]mgl64.Vec3, bool) {
	if g == nil {
		return nil, false
	}
	startCol, startRow, ok := g.locate(start.X(), start.Y())
	if !ok {
		return nil, false
	}
	goalCol, goalRow, ok := g.locate(target.X(), target.Y())
	if !ok {
		return nil, false
	}
	if !g.isWalkable(startCol, startRow) {
		startCol, startRow, ok = g.closestWalkable(startCol, startRow)
		if !ok {
			return nil, false
		}
	}
	if !g.isWalkable(goalCol, goalRow) {
		return nil, false
	}
	nodes, ok := g.astar(navPoint{col: startCol, row: startRow}, navPoint{col: goalCol, row: goalRow})
	if !ok || len(nodes) == 0 {
		return nil, false
	}
	target = geom.Flat(target)
	path := make([]mgl64.Vec3, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		path = append(path, g.worldPos(nodes[i].col, nodes[i].row))
	}
	if len(path) == 0 {
		return []mgl64.Vec3{target}, true
	}
	if geom.Distance(path[len(path)-1], target) > 1 {
		path = append(path, target)
	} else {
		path[len(path)-1] = target
	}
	return path, true
}

// closestPoint projects a point onto the walkable surface. Points inside a
// walkable cell are returned unchanged on the ground plane.
func (g *navGrid) closestPoint(point mgl64.Vec3) (mgl64.Vec3, bool) {
	col, row, ok := g.locate(point.X(), point.Y())
	if !ok {
		return mgl64.Vec3{}, false
	}
	inside := point.X() >= 0 && point.Y() >= 0 && point.X() < g.width && point.Y() < g.height
	if inside && g.isWalkable(col, row) {
		return geom.Flat(point), true
	}
	col, row, ok = g.closestWalkable(col, row)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return g.worldPos(col, row), true
}

// Navigation is the world's walkable-surface service.
type Navigation struct {
	grid *navGrid
}

func NewNavigation(obstacles []Obstacle, width, height, cellSize float64) *Navigation {
	return &Navigation{grid: newNavGrid(obstacles, width, height, cellSize)}
}

// ClosestPoint implements ai.Navigation.
func (n *Navigation) ClosestPoint(point mgl64.Vec3) (mgl64.Vec3, bool) {
	if n == nil || n.grid == nil {
		return mgl64.Vec3{}, false
	}
	return n.grid.closestPoint(point)
}

// FindPath plans a route between two points. Unreachable goals fall back to
// the cheapest reachable cell in the goal's neighbourhood.
func (n *Navigation) FindPath(start, goal mgl64.Vec3) ([]mgl64.Vec3, bool) {
	if n == nil || n.grid == nil {
		return nil, false
	}
	grid := n.grid
	if path, ok := grid.findPath(start, goal); ok {
		return path, true
	}
	alt, ok := grid.closestPoint(goal)
	if !ok {
		return nil, false
	}
	path, ok := grid.findPath(start, alt)
	if !ok {
		return nil, false
	}
	return path, true
}

func (n *Navigation) Walkable(point mgl64.Vec3) bool {
	if n == nil || n.grid == nil {
		return false
	}
	col, row, ok := n.grid.locate(point.X(), point.Y())
	return ok && n.grid.isWalkable(col, row)
}

func (n *Navigation) CellSize() float64 {
	if n == nil || n.grid == nil {
		return 0
	}
	return n.grid.cellSize
}

// Cols and Rows report the grid dimensions.
func (n *Navigation) Cols() int {
	if n == nil || n.grid == nil {
		return 0
	}
	return n.grid.cols
}

func (n *Navigation) Rows() int {
	if n == nil || n.grid == nil {
		return 0
	}
	return n.grid.rows
}
