package mesh

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// ErrUnresolved is returned when a serialized mesh references an object
// the scene does not have.
var ErrUnresolved = errors.New("mesh: unresolved reference")

// ErrSubMeshRange is returned when a serialized sub-mesh has a negative
// start or count.
var ErrSubMeshRange = errors.New("mesh: invalid sub-mesh range")

// SerializedGeometry is the persisted form of a geometry.
type SerializedGeometry struct {
	ID                   string    `json:"id"`
	Updatable            bool      `json:"updatable,omitempty"`
	Positions            []float32 `json:"positions,omitempty"`
	Normals              []float32 `json:"normals,omitempty"`
	Tangents             []float32 `json:"tangents,omitempty"`
	UVs                  []float32 `json:"uvs,omitempty"`
	UVs2                 []float32 `json:"uvs2,omitempty"`
	UVs3                 []float32 `json:"uvs3,omitempty"`
	UVs4                 []float32 `json:"uvs4,omitempty"`
	UVs5                 []float32 `json:"uvs5,omitempty"`
	UVs6                 []float32 `json:"uvs6,omitempty"`
	Colors               []float32 `json:"colors,omitempty"`
	MatricesIndices      []float32 `json:"matricesIndices,omitempty"`
	MatricesWeights      []float32 `json:"matricesWeights,omitempty"`
	MatricesIndicesExtra []float32 `json:"matricesIndicesExtra,omitempty"`
	MatricesWeightsExtra []float32 `json:"matricesWeightsExtra,omitempty"`
	Indices              []uint32  `json:"indices,omitempty"`
	DelayLoadingFile     string    `json:"delayLoadingFile,omitempty"`
	DelayInfo            []string  `json:"delayInfo,omitempty"`
}

func (s *SerializedGeometry) vertexData() *VertexData {
	return &VertexData{
		Positions:            s.Positions,
		Normals:              s.Normals,
		Tangents:             s.Tangents,
		UVs:                  s.UVs,
		UVs2:                 s.UVs2,
		UVs3:                 s.UVs3,
		UVs4:                 s.UVs4,
		UVs5:                 s.UVs5,
		UVs6:                 s.UVs6,
		Colors:               s.Colors,
		MatricesIndices:      s.MatricesIndices,
		MatricesWeights:      s.MatricesWeights,
		MatricesIndicesExtra: s.MatricesIndicesExtra,
		MatricesWeightsExtra: s.MatricesWeightsExtra,
		Indices:              s.Indices,
	}
}

// Serialize captures the streams, or only the delayed file reference while
// the data is not loaded.
func (g *Geometry) Serialize() *SerializedGeometry {
	out := &SerializedGeometry{ID: g.ID, Updatable: g.updatable}
	if !g.IsReady() {
		out.DelayLoadingFile = g.DelayLoadingFile
		out.DelayInfo = append([]string(nil), g.DelayInfo...)
		return out
	}
	vd := &VertexData{}
	for kind, vb := range g.vertexBuffers {
		vd.Set(kind, vb.Data())
	}
	out.Positions, out.Normals, out.Tangents = vd.Positions, vd.Normals, vd.Tangents
	out.UVs, out.UVs2, out.UVs3 = vd.UVs, vd.UVs2, vd.UVs3
	out.UVs4, out.UVs5, out.UVs6 = vd.UVs4, vd.UVs5, vd.UVs6
	out.Colors = vd.Colors
	out.MatricesIndices, out.MatricesWeights = vd.MatricesIndices, vd.MatricesWeights
	out.MatricesIndicesExtra, out.MatricesWeightsExtra = vd.MatricesIndicesExtra, vd.MatricesWeightsExtra
	out.Indices = g.indices
	return out
}

// ParseGeometry creates a geometry registered in scene. Geometries with a
// delayed file start NotLoaded.
func ParseGeometry(data *SerializedGeometry, scene Scene) *Geometry {
	var g *Geometry
	if data.DelayLoadingFile != "" {
		g = NewGeometry(data.ID, scene, nil, data.Updatable, nil)
		g.loadState = DelayLoadNotLoaded
		g.DelayLoadingFile = data.DelayLoadingFile
		g.DelayInfo = append([]string(nil), data.DelayInfo...)
	} else {
		g = NewGeometry(data.ID, scene, data.vertexData(), data.Updatable, nil)
	}
	scene.AddGeometry(g)
	return g
}

// SerializedSubMesh is the persisted form of a sub-mesh.
type SerializedSubMesh struct {
	MaterialIndex int `json:"materialIndex"`
	VerticesStart int `json:"verticesStart"`
	VerticesCount int `json:"verticesCount"`
	IndexStart    int `json:"indexStart"`
	IndexCount    int `json:"indexCount"`
}

// SerializedInstance is the persisted form of an instance.
type SerializedInstance struct {
	Name               string                  `json:"name"`
	ID                 string                  `json:"id"`
	Position           []float32               `json:"position"`
	Rotation           []float32               `json:"rotation,omitempty"`
	RotationQuaternion []float32               `json:"rotationQuaternion,omitempty"`
	Scaling            []float32               `json:"scaling"`
	Animations         []*animation.Serialized `json:"animations,omitempty"`
}

// Serialized is the persisted form of a mesh.
type Serialized struct {
	Name               string    `json:"name"`
	ID                 string    `json:"id"`
	Position           []float32 `json:"position"`
	Rotation           []float32 `json:"rotation,omitempty"`
	RotationQuaternion []float32 `json:"rotationQuaternion,omitempty"`
	Scaling            []float32 `json:"scaling"`
	PivotMatrix        []float32 `json:"pivotMatrix,omitempty"`
	IsEnabled          bool      `json:"isEnabled"`
	IsVisible          bool      `json:"isVisible"`
	Visibility         float32   `json:"visibility"`
	ReceiveShadows     bool      `json:"receiveShadows,omitempty"`
	LayerMask          uint32    `json:"layerMask"`
	IsUnIndexed        bool      `json:"isUnIndexed,omitempty"`

	ParentID             string `json:"parentId,omitempty"`
	GeometryID           string `json:"geometryId,omitempty"`
	MaterialID           string `json:"materialId,omitempty"`
	SkeletonID           string `json:"skeletonId,omitempty"`
	MorphTargetManagerID string `json:"morphTargetManagerId,omitempty"`

	SubMeshes []SerializedSubMesh  `json:"subMeshes,omitempty"`
	Instances []SerializedInstance `json:"instances,omitempty"`

	RenderOutline bool      `json:"renderOutline,omitempty"`
	OutlineWidth  float32   `json:"outlineWidth"`
	OutlineColor  []float32 `json:"outlineColor"`
	RenderOverlay bool      `json:"renderOverlay,omitempty"`
	OverlayColor  []float32 `json:"overlayColor"`
	OverlayAlpha  float32   `json:"overlayAlpha"`

	PhysicsImpostor    float32 `json:"physicsImpostor,omitempty"`
	PhysicsMass        float32 `json:"physicsMass,omitempty"`
	PhysicsFriction    float32 `json:"physicsFriction,omitempty"`
	PhysicsRestitution float32 `json:"physicsRestitution,omitempty"`

	LODMeshIDs   []string  `json:"lodMeshIds,omitempty"`
	LODDistances []float32 `json:"lodDistances,omitempty"`

	Animations []*animation.Serialized     `json:"animations,omitempty"`
	Ranges     []animation.SerializedRange `json:"ranges,omitempty"`
	Metadata   any                         `json:"metadata,omitempty"`
}

func serializeTransform(n *Node) (pos, rot, quat, scaling []float32) {
	pos, scaling = n.Position.Array(), n.Scaling.Array()
	if n.RotationQuaternion != nil {
		quat = n.RotationQuaternion.Array()
	} else {
		rot = n.Rotation.Array()
	}
	return pos, rot, quat, scaling
}

func parseTransform(n *Node, pos, rot, quat, scaling []float32) {
	if len(pos) == 3 {
		n.Position = math.Vec3FromSlice(pos, 0)
	}
	if len(rot) == 3 {
		n.Rotation = math.Vec3FromSlice(rot, 0)
	}
	if len(quat) == 4 {
		q := math.QuatFromSlice(quat, 0)
		n.RotationQuaternion = &q
	}
	if len(scaling) == 3 {
		n.Scaling = math.Vec3FromSlice(scaling, 0)
	}
}

func serializeAnimations(list []*animation.Animation) []*animation.Serialized {
	var out []*animation.Serialized
	for _, a := range list {
		out = append(out, a.Serialize())
	}
	return out
}

func parseAnimations(list []*animation.Serialized) ([]*animation.Animation, error) {
	var out []*animation.Animation
	for _, s := range list {
		a, err := animation.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("animation %s: %w", s.Name, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Serialize captures the mesh, its sub-meshes and its instances. Geometry,
// material and skeleton are referenced by id.
func (m *Mesh) Serialize() *Serialized {
	out := &Serialized{
		Name:           m.Name,
		ID:             m.ID,
		IsEnabled:      m.enabled,
		IsVisible:      m.IsVisible,
		Visibility:     m.Visibility,
		ReceiveShadows: m.ReceiveShadows,
		LayerMask:      m.LayerMask,
		IsUnIndexed:    m.unIndexed,
		RenderOutline:  m.RenderOutline,
		OutlineWidth:   m.OutlineWidth,
		OutlineColor:   m.OutlineColor.Array(),
		RenderOverlay:  m.RenderOverlay,
		OverlayColor:   m.OverlayColor.Array(),
		OverlayAlpha:   m.OverlayAlpha,
		Animations:     serializeAnimations(m.Animations),
		Metadata:       m.Metadata,
	}
	out.Position, out.Rotation, out.RotationQuaternion, out.Scaling = serializeTransform(m.Node)
	if !m.pivot.IsIdentity() {
		out.PivotMatrix = append([]float32(nil), m.pivot[:]...)
	}
	if p := m.Parent(); p != nil {
		out.ParentID = p.ID
	}
	if m.geometry != nil {
		out.GeometryID = m.geometry.ID
		for _, sm := range m.subMeshes {
			out.SubMeshes = append(out.SubMeshes, SerializedSubMesh{
				MaterialIndex: sm.MaterialIndex,
				VerticesStart: sm.VerticesStart,
				VerticesCount: sm.VerticesCount,
				IndexStart:    sm.IndexStart,
				IndexCount:    sm.IndexCount,
			})
		}
	}
	if m.Material != nil {
		out.MaterialID = m.Material.ID()
	}
	if m.skeleton != nil {
		out.SkeletonID = m.skeleton.ID
	}
	if m.MorphTargetManager != nil {
		out.MorphTargetManagerID = m.MorphTargetManager.ID
	}
	if m.PhysicsImpostor != nil {
		p := m.PhysicsImpostor.Parameters()
		out.PhysicsImpostor = p["type"]
		out.PhysicsMass = p["mass"]
		out.PhysicsFriction = p["friction"]
		out.PhysicsRestitution = p["restitution"]
	}
	for _, l := range m.lodLevels {
		id := ""
		if l.Mesh != nil {
			id = l.Mesh.ID
		}
		out.LODMeshIDs = append(out.LODMeshIDs, id)
		out.LODDistances = append(out.LODDistances, l.Distance)
	}
	if len(m.Animations) > 0 {
		for _, r := range m.Animations[0].Ranges() {
			out.Ranges = append(out.Ranges, animation.SerializedRange{Name: r.Name, From: r.From, To: r.To})
		}
	}
	for _, inst := range m.instances {
		si := SerializedInstance{
			Name:       inst.Name,
			ID:         inst.ID,
			Animations: serializeAnimations(inst.Animations),
		}
		si.Position, si.Rotation, si.RotationQuaternion, si.Scaling = serializeTransform(inst.Node)
		out.Instances = append(out.Instances, si)
	}
	return out
}

// Resolver finds the shared objects a serialized mesh references.
type Resolver interface {
	GeometryByID(id string) *Geometry
	MaterialByID(id string) material.Material
	SkeletonByID(id string) *skeleton.Skeleton
}

// Parse rebuilds a mesh in scene. Parent and level of detail links are
// restored by Link once every mesh exists. On error the partially built
// mesh is disposed.
func Parse(data *Serialized, scene Scene, res Resolver) (*Mesh, error) {
	m := NewMesh(data.Name, scene)
	m.ID = data.ID
	if m.ID == "" {
		m.ID = data.Name
	}
	if err := m.parse(data, res); err != nil {
		if m.geometry != nil {
			m.geometry.ReleaseForMesh(m, false)
		}
		if derr := m.Dispose(false); derr != nil {
			logger.Warn("dispose partially parsed mesh", zap.String("mesh", data.Name), zap.Error(derr))
		}
		return nil, fmt.Errorf("mesh %s: %w", data.Name, err)
	}
	return m, nil
}

func (m *Mesh) parse(data *Serialized, res Resolver) error {
	parseTransform(m.Node, data.Position, data.Rotation, data.RotationQuaternion, data.Scaling)
	if len(data.PivotMatrix) == 16 {
		m.pivot = math.Mat4FromSlice(data.PivotMatrix, 0)
	}
	m.enabled = data.IsEnabled
	m.IsVisible = data.IsVisible
	m.Visibility = data.Visibility
	m.ReceiveShadows = data.ReceiveShadows
	m.LayerMask = data.LayerMask
	m.Metadata = data.Metadata
	m.RenderOutline = data.RenderOutline
	m.OutlineWidth = data.OutlineWidth
	m.RenderOverlay = data.RenderOverlay
	m.OverlayAlpha = data.OverlayAlpha
	if len(data.OutlineColor) == 3 {
		m.OutlineColor = math.Color3{R: data.OutlineColor[0], G: data.OutlineColor[1], B: data.OutlineColor[2]}
	}
	if len(data.OverlayColor) == 3 {
		m.OverlayColor = math.Color3{R: data.OverlayColor[0], G: data.OverlayColor[1], B: data.OverlayColor[2]}
	}

	if data.GeometryID != "" {
		g := res.GeometryByID(data.GeometryID)
		if g == nil {
			return fmt.Errorf("geometry %s: %w", data.GeometryID, ErrUnresolved)
		}
		for _, s := range data.SubMeshes {
			if s.VerticesStart < 0 || s.VerticesCount < 0 || s.IndexStart < 0 || s.IndexCount < 0 {
				return fmt.Errorf("sub-mesh %d/%d: %w", s.IndexStart, s.IndexCount, ErrSubMeshRange)
			}
		}
		g.ApplyToMesh(m)
		if len(data.SubMeshes) > 0 {
			m.ReleaseSubMeshes()
			for _, s := range data.SubMeshes {
				NewSubMesh(s.MaterialIndex, s.VerticesStart, s.VerticesCount, s.IndexStart, s.IndexCount, m, m, true)
			}
		}
	}
	m.unIndexed = data.IsUnIndexed

	if data.MaterialID != "" {
		if mat := res.MaterialByID(data.MaterialID); mat != nil {
			m.Material = mat
		} else {
			logger.Warn("mesh material not found, using default",
				zap.String("mesh", m.Name), zap.String("material", data.MaterialID))
		}
	}
	if data.SkeletonID != "" {
		s := res.SkeletonByID(data.SkeletonID)
		if s == nil {
			return fmt.Errorf("skeleton %s: %w", data.SkeletonID, ErrUnresolved)
		}
		m.SetSkeleton(s)
	}

	anims, err := parseAnimations(data.Animations)
	if err != nil {
		return err
	}
	m.Animations = anims
	for _, r := range data.Ranges {
		for _, a := range m.Animations {
			a.CreateRange(r.Name, r.From, r.To)
		}
	}

	for _, si := range data.Instances {
		inst := m.CreateInstance(si.Name)
		if si.ID != "" {
			inst.ID = si.ID
		}
		parseTransform(inst.Node, si.Position, si.Rotation, si.RotationQuaternion, si.Scaling)
		if inst.Animations, err = parseAnimations(si.Animations); err != nil {
			return fmt.Errorf("instance %s: %w", si.Name, err)
		}
		inst.ComputeWorldMatrix(true)
	}

	m.ComputeWorldMatrix(true)
	return nil
}

// Link restores the parent and level of detail references of a parsed
// mesh. byID returns nil for unknown ids.
func Link(m *Mesh, data *Serialized, byID func(id string) AbstractMesh) error {
	if data.ParentID != "" {
		parent := byID(data.ParentID)
		if parent == nil {
			return fmt.Errorf("mesh %s parent %s: %w", m.Name, data.ParentID, ErrUnresolved)
		}
		m.SetParent(parent.TransformNode())
	}
	if len(data.LODMeshIDs) != len(data.LODDistances) {
		return fmt.Errorf("mesh %s: %d lod meshes for %d distances: %w",
			m.Name, len(data.LODMeshIDs), len(data.LODDistances), ErrUnresolved)
	}
	for i, id := range data.LODMeshIDs {
		var lod *Mesh
		if id != "" {
			found, ok := byID(id).(*Mesh)
			if !ok || found == nil {
				return fmt.Errorf("mesh %s lod %s: %w", m.Name, id, ErrUnresolved)
			}
			lod = found
		}
		m.AddLODLevel(data.LODDistances[i], lod)
	}
	return nil
}
