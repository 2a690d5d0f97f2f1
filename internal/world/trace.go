package world

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/geom"
)

const traceEpsilon = 1e-9

// Surface reported for actor hits.
const SurfaceFlesh = "flesh"

// Trace implements ai.World. The segment is tested against obstacle boxes
// and actor cylinders; the nearest hit wins. Obstacles carrying one of the
// ray's IgnoreTags and the actor named by Ignore are transparent.
func (w *World) Trace(ray ai.Ray) ai.TraceResult {
	dir := ray.To.Sub(ray.From)
	best := math.Inf(1)
	var result ai.TraceResult

	for _, obs := range w.obstacles {
		if obs.hasAnyTag(ray.IgnoreTags) {
			continue
		}
		t, normal, ok := segmentBox(ray.From, dir, obs)
		if !ok || t >= best {
			continue
		}
		best = t
		result = ai.TraceResult{
			Hit:      true,
			Position: ray.From.Add(dir.Mul(t)),
			Normal:   normal,
			Surface:  obs.Surface,
			Tags:     slices.Clone(obs.Tags),
		}
	}

	query := w.movers.Query()
	for query.Next() {
		identity, body, _ := query.Get()
		if identity.ID == ray.Ignore {
			continue
		}
		radius := body.Radius
		if radius <= 0 {
			radius = ActorRadius
		}
		t, normal, ok := segmentCylinder(ray.From, dir, body.Position, radius, ActorHeight)
		if !ok || t > best || t == best && result.Actor != "" && identity.ID > result.Actor {
			continue
		}
		best = t
		result = ai.TraceResult{
			Hit:      true,
			Position: ray.From.Add(dir.Mul(t)),
			Normal:   normal,
			Surface:  SurfaceFlesh,
			Actor:    identity.ID,
		}
	}
	return result
}

// segmentBox is a slab test of from+t*dir, t in [0,1], against the obstacle
// volume. A segment starting inside the box hits at t=0.
func segmentBox(from, dir mgl64.Vec3, obs Obstacle) (float64, mgl64.Vec3, bool) {
	lo := mgl64.Vec3{obs.X, obs.Y, 0}
	hi := mgl64.Vec3{obs.X + obs.Width, obs.Y + obs.Depth, obs.Height}

	tEnter, tExit := 0.0, 1.0
	enterAxis := -1
	enterSign := 0.0
	for axis := 0; axis < 3; axis++ {
		if math.Abs(dir[axis]) < traceEpsilon {
			if from[axis] < lo[axis] || from[axis] > hi[axis] {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}
		t1 := (lo[axis] - from[axis]) / dir[axis]
		t2 := (hi[axis] - from[axis]) / dir[axis]
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1
		}
		if t1 > tEnter {
			tEnter = t1
			enterAxis = axis
			enterSign = sign
		}
		if t2 < tExit {
			tExit = t2
		}
		if tEnter > tExit {
			return 0, mgl64.Vec3{}, false
		}
	}

	var normal mgl64.Vec3
	if enterAxis >= 0 {
		normal[enterAxis] = enterSign
	} else {
		normal = geom.Normal(dir.Mul(-1))
	}
	return tEnter, normal, true
}

// segmentCylinder intersects from+t*dir, t in [0,1], with a vertical
// cylinder standing at base.
func segmentCylinder(from, dir, base mgl64.Vec3, radius, height float64) (float64, mgl64.Vec3, bool) {
	tEnter, tExit := 0.0, 1.0
	radialEntry := false

	ox := from.X() - base.X()
	oy := from.Y() - base.Y()
	a := dir.X()*dir.X() + dir.Y()*dir.Y()
	c := ox*ox + oy*oy - radius*radius
	if a < traceEpsilon {
		if c > 0 {
			return 0, mgl64.Vec3{}, false
		}
	} else {
		b := 2 * (ox*dir.X() + oy*dir.Y())
		disc := b*b - 4*a*c
		if disc < 0 {
			return 0, mgl64.Vec3{}, false
		}
		sq := math.Sqrt(disc)
		t1 := (-b - sq) / (2 * a)
		t2 := (-b + sq) / (2 * a)
		if t1 > tEnter {
			tEnter = t1
			radialEntry = true
		}
		tExit = math.Min(tExit, t2)
	}

	bottom := base.Z()
	top := base.Z() + height
	zEntry := false
	if math.Abs(dir.Z()) < traceEpsilon {
		if from.Z() < bottom || from.Z() > top {
			return 0, mgl64.Vec3{}, false
		}
	} else {
		t1 := (bottom - from.Z()) / dir.Z()
		t2 := (top - from.Z()) / dir.Z()
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tEnter {
			tEnter = t1
			zEntry = true
			radialEntry = false
		}
		tExit = math.Min(tExit, t2)
	}
	if tEnter > tExit {
		return 0, mgl64.Vec3{}, false
	}

	hit := from.Add(dir.Mul(tEnter))
	var normal mgl64.Vec3
	switch {
	case radialEntry:
		normal = geom.Normal(geom.Flat(hit.Sub(base)))
	case zEntry && dir.Z() < 0:
		normal = geom.Up
	case zEntry:
		normal = geom.Up.Mul(-1)
	default:
		normal = geom.Normal(dir.Mul(-1))
	}
	return tEnter, normal, true
}
