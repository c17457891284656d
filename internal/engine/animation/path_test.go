package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath2Length(t *testing.T) {
	p := NewPath2(0, 0).AddLineTo(3, 0).AddLineTo(3, 4)
	assert.InDelta(t, 7, p.Length(), 1e-6)

	p.Close()
	assert.InDelta(t, 12, p.Length(), 1e-5)

	p.AddLineTo(100, 100)
	assert.Len(t, p.Points(), 3, "closed paths do not grow")
}

func TestPath2PointAt(t *testing.T) {
	p := NewPath2(0, 0).AddLineTo(10, 0).AddLineTo(10, 10)

	tests := []struct {
		pos  float32
		x, y float32
	}{
		{0, 0, 0},
		{0.25, 5, 0},
		{0.5, 10, 0},
		{0.75, 10, 5},
		{1, 10, 10},
		{1.5, 0, 0},
	}
	for _, tt := range tests {
		pt := p.PointAt(tt.pos)
		assert.InDelta(t, tt.x, pt.X, 1e-4, "pos %v", tt.pos)
		assert.InDelta(t, tt.y, pt.Y, 1e-4, "pos %v", tt.pos)
	}
}

func TestPath2Arc(t *testing.T) {
	p := NewPath2(1, 0).AddArcTo(0, 1, -1, 0, 36)
	require.Len(t, p.Points(), 37)
	last := p.Points()[36]
	assert.InDelta(t, -1, last.X, 1e-4)
	assert.InDelta(t, 0, last.Y, 1e-4)
	// half circle of radius 1
	assert.InDelta(t, 3.14159, p.Length(), 1e-2)
}

func TestPathCursorMove(t *testing.T) {
	p := NewPath2(0, 0).AddLineTo(10, 0)
	c := NewPathCursor(p)

	var changes int
	c.OnChange.Add(func(*PathCursor) { changes++ })

	require.NoError(t, c.MoveAhead(0.5))
	assert.InDelta(t, 5, c.Point().X, 1e-5)
	assert.Equal(t, float32(0), c.Point().Y)

	require.NoError(t, c.MoveAhead(0.75))
	assert.InDelta(t, 0.25, c.Value(), 1e-6)

	require.NoError(t, c.MoveBack(0.5))
	assert.InDelta(t, 0.75, c.Value(), 1e-6)

	assert.ErrorIs(t, c.Move(1.5), ErrStepTooLarge)
	assert.ErrorIs(t, c.Move(-2), ErrStepTooLarge)
	assert.InDelta(t, 0.75, c.Value(), 1e-6)
	assert.Equal(t, 3, changes)
}
