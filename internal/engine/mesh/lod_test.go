package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

func observeWarnings(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })
	return logs
}

// viewerAt places a viewer on the axis of the quad at distance d from its
// bounding sphere center.
func viewerAt(d float32) fakeViewer {
	return fakeViewer{pos: math.Vec3{X: 0.5, Y: 0.5, Z: d}}
}

func lodChain(t *testing.T, s *fakeScene) (master, near, far *Mesh) {
	t.Helper()
	master = newQuad(s, "master")
	near = newQuad(s, "near")
	far = newQuad(s, "far")
	require.True(t, master.AddLODLevel(30, far))
	require.True(t, master.AddLODLevel(15, near))
	return master, near, far
}

func TestAddLODLevelSortsByDistance(t *testing.T) {
	s := newFakeScene()
	m, near, far := lodChain(t, s)

	levels := m.LODLevels()
	require.Len(t, levels, 2)
	assert.Equal(t, float32(30), levels[0].Distance)
	assert.Same(t, far, levels[0].Mesh)
	assert.Equal(t, float32(15), levels[1].Distance)
	assert.Same(t, near, levels[1].Mesh)

	assert.True(t, m.HasLODLevels())
	assert.Same(t, m, near.MasterMesh())
	assert.True(t, near.IsBlocked())
	assert.False(t, m.IsBlocked())
}

func TestGetLODByDistance(t *testing.T) {
	s := newFakeScene()
	m, near, far := lodChain(t, s)

	assert.Same(t, m, m.GetLOD(viewerAt(10), nil))
	assert.Same(t, near, m.GetLOD(viewerAt(20), nil))
	assert.Same(t, far, m.GetLOD(viewerAt(40), nil))
}

func TestGetLODFurthestPassedLevelWins(t *testing.T) {
	s := newFakeScene()
	m := newQuad(s, "master")
	a := newQuad(s, "a")
	b := newQuad(s, "b")
	require.True(t, m.AddLODLevel(100, a))
	require.True(t, m.AddLODLevel(50, b))

	assert.Same(t, m, m.GetLOD(viewerAt(10), nil), "inside every threshold")
	assert.Same(t, b, m.GetLOD(viewerAt(75), nil))
	assert.Same(t, a, m.GetLOD(viewerAt(150), nil))
}

func TestGetLODNilLevelDrawsNothing(t *testing.T) {
	s := newFakeScene()
	m, _, far := lodChain(t, s)
	require.True(t, m.AddLODLevel(50, nil))

	assert.Nil(t, m.GetLOD(viewerAt(60), nil))
	assert.Nil(t, m.SelectLOD(viewerAt(60)))
	assert.Same(t, far, m.SelectLOD(viewerAt(45)))
	assert.Same(t, m, m.SelectLOD(nil))
}

func TestAddLODLevelRejectsSharedLevel(t *testing.T) {
	logs := observeWarnings(t)
	s := newFakeScene()
	m, near, _ := lodChain(t, s)
	other := newQuad(s, "other")

	assert.False(t, other.AddLODLevel(10, near))
	assert.False(t, other.HasLODLevels())
	assert.Same(t, m, near.MasterMesh())
	require.Equal(t, 1, logs.FilterMessage("lod mesh already used by another mesh").Len())
}

func TestLODLevelLookupAndRemoval(t *testing.T) {
	s := newFakeScene()
	m, near, far := lodChain(t, s)

	got, ok := m.LODLevelAtDistance(15)
	assert.True(t, ok)
	assert.Same(t, near, got)
	_, ok = m.LODLevelAtDistance(16)
	assert.False(t, ok)

	m.RemoveLODLevel(near)
	assert.Nil(t, near.MasterMesh())
	assert.False(t, near.IsBlocked())
	require.Len(t, m.LODLevels(), 1)
	assert.Same(t, far, m.LODLevels()[0].Mesh)

	assert.Same(t, m, m.GetLOD(viewerAt(20), nil))
}

func TestLODSelectionEvent(t *testing.T) {
	s := newFakeScene()
	m, near, _ := lodChain(t, s)

	var got []LODSelection
	m.OnLODLevelSelection.Add(func(sel LODSelection) { got = append(got, sel) })

	m.GetLOD(viewerAt(20), nil)
	m.GetLOD(viewerAt(5), nil)

	require.Len(t, got, 2)
	assert.InDelta(t, 20, got[0].Distance, 1e-4)
	assert.Same(t, m, got[0].Mesh)
	assert.Same(t, near, got[0].Selected)
	assert.Same(t, m, got[1].Selected)
}

func TestInstanceSelectsLevelFromItsOwnPosition(t *testing.T) {
	s := newFakeScene()
	m, _, far := lodChain(t, s)
	inst := m.CreateInstance("far away")
	inst.Position = math.Vec3{Z: -35}
	inst.ComputeWorldMatrix(true)

	viewer := viewerAt(10)
	assert.Same(t, m, m.SelectLOD(viewer))

	s.renderID++
	assert.Same(t, far, inst.SelectLOD(viewer))
	assert.Same(t, far, inst.CurrentLOD())
	inst.Activate(s.renderID)

	require.True(t, far.SubMeshes()[0].Render(false))
	require.Len(t, s.rec.Draws, 1)
	assert.Equal(t, 1, s.rec.Draws[0].Instances)

	// The master itself has nothing registered.
	m.Activate(s.renderID)
	require.True(t, m.SubMeshes()[0].Render(false))
	assert.Zero(t, s.rec.Draws[1].Instances)
}
