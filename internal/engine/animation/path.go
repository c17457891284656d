package animation

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/internal/engine/event"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Path2 is a 2D polyline on the XZ plane.
type Path2 struct {
	points []math.Vec2
	length float32
	closed bool
}

// NewPath2 starts a path at (x, y).
func NewPath2(x, y float32) *Path2 {
	return &Path2{points: []math.Vec2{{X: x, Y: y}}}
}

// AddLineTo appends a straight segment. Closed paths are not extended.
func (p *Path2) AddLineTo(x, y float32) *Path2 {
	if p.closed {
		return p
	}
	next := math.Vec2{X: x, Y: y}
	prev := p.points[len(p.points)-1]
	p.points = append(p.points, next)
	p.length += next.Sub(prev).Length()
	return p
}

// AddArcTo appends the circular arc from the last point through mid to end,
// approximated by segments lines.
func (p *Path2) AddArcTo(midX, midY, endX, endY float32, segments int) *Path2 {
	if p.closed {
		return p
	}
	if segments <= 0 {
		segments = 36
	}
	arc, ok := newArc(p.points[len(p.points)-1], math.Vec2{X: midX, Y: midY}, math.Vec2{X: endX, Y: endY})
	if !ok {
		return p.AddLineTo(endX, endY)
	}

	increment := arc.angle / float32(segments)
	if arc.clockwise {
		increment = -increment
	}
	current := arc.startAngle + increment
	for range segments {
		s, c := math32.Sincos(current)
		p.AddLineTo(c*arc.radius+arc.center.X, s*arc.radius+arc.center.Y)
		current += increment
	}
	return p
}

// Close marks the path as a loop.
func (p *Path2) Close() *Path2 {
	p.closed = true
	return p
}

// Closed reports whether the path loops.
func (p *Path2) Closed() bool { return p.closed }

// Points returns the path vertices.
func (p *Path2) Points() []math.Vec2 { return p.points }

// Length returns the path length including the closing segment of a loop.
func (p *Path2) Length() float32 {
	l := p.length
	if p.closed {
		l += p.points[0].Sub(p.points[len(p.points)-1]).Length()
	}
	return l
}

// PointAt returns the point at normalized length position pos in [0,1].
// Out of range positions return the origin.
func (p *Path2) PointAt(pos float32) math.Vec2 {
	if pos < 0 || pos > 1 {
		return math.Vec2{}
	}
	target := pos * p.Length()
	var prevOffset float32
	n := len(p.points)
	for i := range n {
		if i == n-1 && !p.closed {
			break
		}
		a, b := p.points[i], p.points[(i+1)%n]
		ab := b.Sub(a)
		nextOffset := prevOffset + ab.Length()
		if target >= prevOffset && target <= nextOffset {
			dir := ab.Normalize()
			local := target - prevOffset
			return math.Vec2{X: a.X + dir.X*local, Y: a.Y + dir.Y*local}
		}
		prevOffset = nextOffset
	}
	if n == 1 {
		return p.points[0]
	}
	return math.Vec2{}
}

type arc2 struct {
	center     math.Vec2
	radius     float32
	startAngle float32
	angle      float32
	clockwise  bool
}

func newArc(start, mid, end math.Vec2) (arc2, bool) {
	temp := mid.X*mid.X + mid.Y*mid.Y
	startToMid := (start.X*start.X + start.Y*start.Y - temp) / 2
	midToEnd := (temp - end.X*end.X - end.Y*end.Y) / 2
	det := (start.X-mid.X)*(mid.Y-end.Y) - (mid.X-end.X)*(start.Y-mid.Y)
	if det == 0 {
		return arc2{}, false
	}

	center := math.Vec2{
		X: (startToMid*(mid.Y-end.Y) - midToEnd*(start.Y-mid.Y)) / det,
		Y: ((start.X-mid.X)*midToEnd - (mid.X-end.X)*startToMid) / det,
	}
	a1 := angleBetween(center, start)
	a2 := angleBetween(center, mid)
	a3 := angleBetween(center, end)

	if a2-a1 > 180 {
		a2 -= 360
	}
	if a2-a1 < -180 {
		a2 += 360
	}
	if a3-a2 > 180 {
		a3 -= 360
	}
	if a3-a2 < -180 {
		a3 += 360
	}

	arc := arc2{
		center:     center,
		radius:     center.Sub(start).Length(),
		startAngle: math.ToRadians(a1),
		clockwise:  a2-a1 < 0,
	}
	if arc.clockwise {
		arc.angle = math.ToRadians(a1 - a3)
	} else {
		arc.angle = math.ToRadians(a3 - a1)
	}
	return arc, true
}

// angleBetween returns the direction from a to b in degrees within [0,360).
func angleBetween(a, b math.Vec2) float32 {
	d := b.Sub(a)
	theta := math32.Atan2(d.Y, d.X)
	if theta < 0 {
		theta += 2 * math32.Pi
	}
	return theta * 180 / math32.Pi
}

// PathCursor walks a Path2 by normalized steps.
type PathCursor struct {
	path  *Path2
	value float32

	// OnChange fires after every move.
	OnChange event.Observable[*PathCursor]
}

// NewPathCursor places a cursor at the start of path.
func NewPathCursor(path *Path2) *PathCursor {
	return &PathCursor{path: path}
}

// Value returns the normalized position in [0,1].
func (c *PathCursor) Value() float32 { return c.value }

// Point returns the cursor position lifted onto the XZ plane.
func (c *PathCursor) Point() math.Vec3 {
	p := c.path.PointAt(c.value)
	return math.Vec3{X: p.X, Y: 0, Z: p.Y}
}

// MoveAhead moves forward by step.
func (c *PathCursor) MoveAhead(step float32) error { return c.Move(step) }

// MoveBack moves backward by step.
func (c *PathCursor) MoveBack(step float32) error { return c.Move(-step) }

// Move shifts the cursor by step, wrapping around the ends of the path.
func (c *PathCursor) Move(step float32) error {
	if math32.Abs(step) > 1 {
		return ErrStepTooLarge
	}
	c.value += step
	for c.value > 1 {
		c.value--
	}
	for c.value < 0 {
		c.value++
	}
	c.OnChange.Notify(c)
	return nil
}
