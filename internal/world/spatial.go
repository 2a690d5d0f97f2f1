package world

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/kdtree"

	"npc-director/server/internal/ai"
)

// actorPoint is a kd-tree entry. Distance is squared to match the keeper.
type actorPoint struct {
	id  ai.ActorID
	pos mgl64.Vec3
}

func (p actorPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(actorPoint)
	return p.pos[d] - q.pos[d]
}

func (p actorPoint) Dims() int { return 3 }

func (p actorPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(actorPoint)
	return p.pos.Sub(q.pos).LenSqr()
}

type actorPoints []actorPoint

func (p actorPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p actorPoints) Len() int                              { return len(p) }
func (p actorPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p actorPoints) Pivot(d kdtree.Dim) int {
	sort.Slice(p, func(i, j int) bool { return p[i].pos[d] < p[j].pos[d] })
	return len(p) / 2
}

// spatialIndex answers sphere queries over actor positions. It is rebuilt
// lazily after positions change.
type spatialIndex struct {
	tree  *kdtree.Tree
	count int
	dirty bool
}

func (s *spatialIndex) markDirty() {
	s.dirty = true
}

func (s *spatialIndex) rebuild(points actorPoints) {
	s.count = len(points)
	s.dirty = false
	if len(points) == 0 {
		s.tree = nil
		return
	}
	s.tree = kdtree.New(points, false)
}

// within returns the IDs of points inside the sphere, nearest first with ties
// broken by ID.
func (s *spatialIndex) within(center mgl64.Vec3, radius float64) []ai.ActorID {
	if s.tree == nil || s.count == 0 || radius < 0 {
		return nil
	}
	keeper := kdtree.NewDistKeeper(radius * radius)
	s.tree.NearestSet(keeper, actorPoint{pos: center})

	found := make([]kdtree.ComparableDist, 0, len(keeper.Heap))
	for _, entry := range keeper.Heap {
		if entry.Comparable == nil {
			continue
		}
		found = append(found, entry)
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Dist != found[j].Dist {
			return found[i].Dist < found[j].Dist
		}
		return found[i].Comparable.(actorPoint).id < found[j].Comparable.(actorPoint).id
	})
	ids := make([]ai.ActorID, len(found))
	for i, entry := range found {
		ids[i] = entry.Comparable.(actorPoint).id
	}
	return ids
}
