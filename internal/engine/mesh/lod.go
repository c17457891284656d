package mesh

import (
	"cmp"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/scenegraph/internal/engine/bounds"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// LODLevel swaps in Mesh once the camera is farther than Distance. A nil
// Mesh draws nothing at that distance.
type LODLevel struct {
	Distance float32
	Mesh     *Mesh
}

func (m *Mesh) LODLevels() []*LODLevel { return m.lodLevels }
func (m *Mesh) HasLODLevels() bool     { return len(m.lodLevels) > 0 }

// MasterMesh returns the mesh this mesh is a level of detail of.
func (m *Mesh) MasterMesh() *Mesh { return m.masterMesh }

// sortLODLevels keeps the levels by decreasing distance.
func (m *Mesh) sortLODLevels() {
	slices.SortStableFunc(m.lodLevels, func(a, b *LODLevel) int {
		return cmp.Compare(b.Distance, a.Distance)
	})
}

// AddLODLevel registers lod for distance. A mesh can be the level of only
// one master; a second registration is logged and ignored.
func (m *Mesh) AddLODLevel(distance float32, lod *Mesh) bool {
	if lod != nil && lod.masterMesh != nil {
		logger.Warn("lod mesh already used by another mesh",
			zap.String("mesh", m.Name), zap.String("lod", lod.Name))
		return false
	}
	m.lodLevels = append(m.lodLevels, &LODLevel{Distance: distance, Mesh: lod})
	if lod != nil {
		lod.masterMesh = m
	}
	m.sortLODLevels()
	return true
}

// LODLevelAtDistance returns the mesh registered for exactly distance.
func (m *Mesh) LODLevelAtDistance(distance float32) (*Mesh, bool) {
	for _, l := range m.lodLevels {
		if l.Distance == distance {
			return l.Mesh, true
		}
	}
	return nil, false
}

// RemoveLODLevel unregisters every level drawing lod.
func (m *Mesh) RemoveLODLevel(lod *Mesh) {
	kept := m.lodLevels[:0]
	for _, l := range m.lodLevels {
		if l.Mesh == lod {
			if lod != nil {
				lod.masterMesh = nil
			}
			continue
		}
		kept = append(kept, l)
	}
	m.lodLevels = kept
	m.sortLODLevels()
}

// GetLOD picks the mesh to draw for a viewer. sphere defaults to the mesh
// bounding sphere. The mesh itself is returned while the camera is closer
// than the smallest level distance.
func (m *Mesh) GetLOD(viewer Viewer, sphere *bounds.Sphere) *Mesh {
	if len(m.lodLevels) == 0 {
		return m
	}
	if sphere == nil {
		if m.boundingInfo == nil {
			return m
		}
		sphere = m.boundingInfo.Sphere
	}

	distance := sphere.CenterWorld.Distance(viewer.GlobalPosition())
	last := m.lodLevels[len(m.lodLevels)-1]
	if last.Distance > distance {
		m.notifyLOD(distance, m)
		return m
	}
	for _, l := range m.lodLevels {
		if l.Distance < distance {
			if l.Mesh != nil {
				l.Mesh.PreActivate()
				l.Mesh.updateSubMeshesBoundingInfo(m.WorldMatrixFromCache())
			}
			m.notifyLOD(distance, l.Mesh)
			return l.Mesh
		}
	}
	m.notifyLOD(distance, m)
	return m
}

func (m *Mesh) notifyLOD(distance float32, selected *Mesh) {
	if m.OnLODLevelSelection.HasObservers() {
		m.OnLODLevelSelection.Notify(LODSelection{Distance: distance, Mesh: m, Selected: selected})
	}
}

func (m *Mesh) updateSubMeshesBoundingInfo(world math.Mat4) {
	for _, sm := range m.subMeshes {
		if !sm.IsGlobal() {
			sm.UpdateBoundingInfo(world)
		}
	}
}

// SelectLOD implements AbstractMesh.
func (m *Mesh) SelectLOD(viewer Viewer) AbstractMesh {
	if viewer == nil {
		return m
	}
	lod := m.GetLOD(viewer, nil)
	if lod == nil {
		return nil
	}
	return lod
}
