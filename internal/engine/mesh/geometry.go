package mesh

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/bounds"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// DelayLoadState tracks geometry whose data is fetched on demand.
type DelayLoadState int

const (
	DelayLoadNone DelayLoadState = iota
	DelayLoadLoaded
	DelayLoadLoading
	DelayLoadNotLoaded
)

// ErrLoadFailed wraps every asynchronous load failure.
var ErrLoadFailed = errors.New("mesh: load failed")

// LoadFunc fetches the vertex data stored in file.
type LoadFunc func(ctx context.Context, file string) (*VertexData, error)

// Geometry holds vertex streams and indices shared by any number of meshes.
// GPU buffers are created when the first mesh attaches and released when
// the last one leaves.
type Geometry struct {
	ID string

	// DelayLoadingFile is fetched by Load when the state is NotLoaded.
	DelayLoadingFile string
	// DelayInfo lists the kinds the delayed file provides.
	DelayInfo []string

	scene         Scene
	engine        gpu.Engine
	meshes        []*Mesh
	vertexBuffers map[string]*gpu.VertexBuffer
	indices       []uint32
	indexBuffer   gpu.Buffer
	totalVertices int
	updatable     bool
	extendMin     math.Vec3
	extendMax     math.Vec3
	hasExtend     bool
	loadState     DelayLoadState
	disposed      bool
}

// NewGeometry creates a geometry registered in scene, filled from vd when
// not nil and attached to m when not nil.
func NewGeometry(id string, scene Scene, vd *VertexData, updatable bool, m *Mesh) *Geometry {
	g := &Geometry{
		ID:            id,
		scene:         scene,
		engine:        scene.Engine(),
		vertexBuffers: make(map[string]*gpu.VertexBuffer),
		updatable:     updatable,
	}
	if vd != nil {
		vd.ApplyToGeometry(g, updatable)
	}
	if m != nil {
		g.ApplyToMesh(m)
		m.ComputeWorldMatrix(true)
	}
	return g
}

func (g *Geometry) Scene() Scene                   { return g.scene }
func (g *Geometry) Meshes() []*Mesh                { return g.meshes }
func (g *Geometry) DelayLoadState() DelayLoadState { return g.loadState }
func (g *Geometry) IsDisposed() bool               { return g.disposed }

// SetDelayLoadState marks the geometry as pending or loaded.
func (g *Geometry) SetDelayLoadState(s DelayLoadState) { g.loadState = s }

// IsReady reports whether the data is present.
func (g *Geometry) IsReady() bool {
	return g.loadState == DelayLoadNone || g.loadState == DelayLoadLoaded
}

// Extend returns the local bounding extents of the positions.
func (g *Geometry) Extend() (min, max math.Vec3) {
	if !g.hasExtend {
		g.updateExtend(nil)
	}
	return g.extendMin, g.extendMax
}

func (g *Geometry) updateExtend(data []float32) {
	if data == nil {
		data = g.VerticesData(gpu.PositionKind, false)
	}
	g.extendMin, g.extendMax = bounds.Extents(data, 0, g.totalVertices)
	g.hasExtend = true
}

// SetVerticesData replaces the stream of kind.
func (g *Geometry) SetVerticesData(kind string, data []float32, updatable bool) {
	g.SetVertexBuffer(gpu.NewVertexBuffer(g.engine, kind, data, updatable), -1)
}

// SetVertexBuffer installs vb, disposing any previous buffer of the same
// kind. Replacing positions resets the extents, the bounding info and the
// global sub-mesh of every attached mesh.
func (g *Geometry) SetVertexBuffer(vb *gpu.VertexBuffer, totalVertices int) {
	kind := vb.Kind()
	if old, ok := g.vertexBuffers[kind]; ok {
		if err := old.Dispose(); err != nil {
			logger.Warn("release vertex buffer", zap.String("geometry", g.ID), zap.String("kind", kind), zap.Error(err))
		}
	}
	g.vertexBuffers[kind] = vb

	if kind == gpu.PositionKind {
		data := vb.Data()
		if totalVertices >= 0 {
			g.totalVertices = totalVertices
		} else {
			g.totalVertices = len(data) / vb.StrideSize()
		}
		g.updateExtend(data)
		for _, m := range g.meshes {
			m.setBoundingInfo(bounds.NewInfo(g.extendMin, g.extendMax))
			m.createGlobalSubMesh(false)
			m.ComputeWorldMatrix(true)
		}
	}
	g.notifyUpdate()
}

// RemoveVerticesData drops the stream of kind.
func (g *Geometry) RemoveVerticesData(kind string) {
	vb, ok := g.vertexBuffers[kind]
	if !ok {
		return
	}
	if err := vb.Dispose(); err != nil {
		logger.Warn("release vertex buffer", zap.String("geometry", g.ID), zap.String("kind", kind), zap.Error(err))
	}
	delete(g.vertexBuffers, kind)
}

// UpdateVerticesData overwrites an existing stream. With updateExtends the
// bounding infos of the attached meshes follow new positions.
func (g *Geometry) UpdateVerticesData(kind string, data []float32, updateExtends bool) bool {
	vb := g.VertexBuffer(kind)
	if vb == nil {
		return false
	}
	vb.Update(data)
	if kind == gpu.PositionKind && updateExtends {
		g.updateExtend(data)
		for _, m := range g.meshes {
			m.setBoundingInfo(bounds.NewInfo(g.extendMin, g.extendMax))
			for _, sm := range m.subMeshes {
				sm.RefreshBoundingInfo()
			}
		}
	}
	g.notifyUpdate()
	return true
}

// TotalVertices returns the vertex count, 0 while not ready.
func (g *Geometry) TotalVertices() int {
	if !g.IsReady() {
		return 0
	}
	return g.totalVertices
}

// VerticesData returns the stream of kind. The slice is shared unless
// copyWhenShared is set and more than one mesh uses the geometry.
func (g *Geometry) VerticesData(kind string, copyWhenShared bool) []float32 {
	vb := g.VertexBuffer(kind)
	if vb == nil {
		return nil
	}
	data := vb.Data()
	if copyWhenShared && len(g.meshes) != 1 {
		return append([]float32(nil), data...)
	}
	return data
}

// IsVertexBufferUpdatable reports whether the stream of kind is dynamic.
func (g *Geometry) IsVertexBufferUpdatable(kind string) bool {
	vb, ok := g.vertexBuffers[kind]
	return ok && vb.IsUpdatable()
}

// VertexBuffer returns the stream of kind, nil while not ready.
func (g *Geometry) VertexBuffer(kind string) *gpu.VertexBuffer {
	if !g.IsReady() {
		return nil
	}
	return g.vertexBuffers[kind]
}

// VertexBuffers returns all streams, nil while not ready.
func (g *Geometry) VertexBuffers() map[string]*gpu.VertexBuffer {
	if !g.IsReady() {
		return nil
	}
	return g.vertexBuffers
}

// IsVerticesDataPresent reports whether kind is available, or announced by
// DelayInfo while the data is not loaded yet.
func (g *Geometry) IsVerticesDataPresent(kind string) bool {
	if !g.IsReady() {
		for _, k := range g.DelayInfo {
			if k == kind {
				return true
			}
		}
		return false
	}
	_, ok := g.vertexBuffers[kind]
	return ok
}

// VerticesDataKinds returns the present kinds, sorted.
func (g *Geometry) VerticesDataKinds() []string {
	kinds := make([]string, 0, len(g.vertexBuffers))
	if !g.IsReady() {
		return append(kinds, g.DelayInfo...)
	}
	for k := range g.vertexBuffers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// SetIndices replaces the index buffer. A non-negative totalVertices
// overrides the vertex count.
func (g *Geometry) SetIndices(indices []uint32, totalVertices int) {
	g.releaseIndexBuffer()
	g.indices = indices
	if len(g.meshes) != 0 && len(indices) > 0 && g.engine != nil {
		g.indexBuffer = g.engine.CreateIndexBuffer(indices)
	}
	if totalVertices >= 0 {
		g.totalVertices = totalVertices
	}
	for _, m := range g.meshes {
		m.createGlobalSubMesh(true)
	}
	g.notifyUpdate()
}

func (g *Geometry) releaseIndexBuffer() {
	if g.indexBuffer == nil || g.engine == nil {
		g.indexBuffer = nil
		return
	}
	if err := g.engine.ReleaseBuffer(g.indexBuffer); err != nil {
		logger.Warn("release index buffer", zap.String("geometry", g.ID), zap.Error(err))
	}
	g.indexBuffer = nil
}

// TotalIndices returns the index count, 0 while not ready.
func (g *Geometry) TotalIndices() int {
	if !g.IsReady() {
		return 0
	}
	return len(g.indices)
}

// Indices returns the index array, copied when copyWhenShared is set and
// the geometry is shared.
func (g *Geometry) Indices(copyWhenShared bool) []uint32 {
	if !g.IsReady() {
		return nil
	}
	if copyWhenShared && len(g.meshes) != 1 {
		return append([]uint32(nil), g.indices...)
	}
	return g.indices
}

// IndexBuffer returns the GPU index buffer, nil while not ready.
func (g *Geometry) IndexBuffer() gpu.Buffer {
	if !g.IsReady() {
		return nil
	}
	return g.indexBuffer
}

// ApplyToMesh attaches m, detaching it from its previous geometry.
func (g *Geometry) ApplyToMesh(m *Mesh) {
	if m.geometry == g {
		return
	}
	if prev := m.geometry; prev != nil {
		prev.ReleaseForMesh(m, false)
	}
	m.geometry = g
	g.scene.AddGeometry(g)
	g.meshes = append(g.meshes, m)

	if g.IsReady() {
		g.applyToMesh(m)
	}
}

func (g *Geometry) applyToMesh(m *Mesh) {
	if _, ok := g.vertexBuffers[gpu.PositionKind]; ok {
		min, max := g.Extend()
		m.setBoundingInfo(bounds.NewInfo(min, max))
		m.createGlobalSubMesh(false)
		m.updateBoundingInfo()
	}
	if len(g.meshes) == 1 && len(g.indices) > 0 && g.indexBuffer == nil && g.engine != nil {
		g.indexBuffer = g.engine.CreateIndexBuffer(g.indices)
	}
}

// ReleaseForMesh detaches m. With shouldDispose the geometry is disposed
// once no mesh uses it.
func (g *Geometry) ReleaseForMesh(m *Mesh, shouldDispose bool) {
	idx := -1
	for i, other := range g.meshes {
		if other == m {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	g.meshes = append(g.meshes[:idx], g.meshes[idx+1:]...)
	m.geometry = nil

	if len(g.meshes) == 0 && shouldDispose {
		if err := g.Dispose(); err != nil {
			logger.Warn("dispose geometry", zap.String("geometry", g.ID), zap.Error(err))
		}
	}
}

func (g *Geometry) notifyUpdate() {
	for _, m := range g.meshes {
		m.markSubMeshesAsAttributesDirty()
	}
}

// Load fetches DelayLoadingFile in the background. The data is applied on
// the scene thread through Scene.Post, followed by onLoaded; failures reach
// onError wrapped in ErrLoadFailed.
func (g *Geometry) Load(ctx context.Context, load LoadFunc, onLoaded func(), onError func(error)) {
	if g.loadState == DelayLoadLoading {
		return
	}
	if g.IsReady() {
		if onLoaded != nil {
			onLoaded()
		}
		return
	}
	if g.DelayLoadingFile == "" || load == nil {
		return
	}

	g.loadState = DelayLoadLoading
	g.scene.AddPendingData(g)
	file := g.DelayLoadingFile

	go func() {
		vd, err := load(ctx, file)
		g.scene.Post(func() {
			g.scene.RemovePendingData(g)
			if g.disposed {
				return
			}
			if err != nil {
				g.loadState = DelayLoadNotLoaded
				err = fmt.Errorf("geometry %s from %q: %w: %w", g.ID, file, ErrLoadFailed, err)
				logger.Warn("geometry load failed", zap.String("geometry", g.ID), zap.Error(err))
				if onError != nil {
					onError(err)
				}
				return
			}

			g.loadState = DelayLoadLoaded
			vd.ApplyToGeometry(g, g.updatable)
			g.DelayInfo = nil
			for _, m := range g.meshes {
				g.applyToMesh(m)
			}
			if onLoaded != nil {
				onLoaded()
			}
		})
	}()
}

// Copy duplicates the data into a new geometry in the same scene.
func (g *Geometry) Copy(id string) *Geometry {
	vd := &VertexData{}
	vd.Indices = append([]uint32(nil), g.Indices(false)...)

	updatable := false
	stop := false
	for _, kind := range Kinds {
		vb, ok := g.vertexBuffers[kind]
		if !ok {
			continue
		}
		vd.Set(kind, append([]float32(nil), vb.Data()...))
		if !stop {
			updatable = vb.IsUpdatable()
			stop = !updatable
		}
	}

	c := NewGeometry(id, g.scene, vd, updatable, nil)
	c.loadState = g.loadState
	c.DelayLoadingFile = g.DelayLoadingFile
	c.DelayInfo = append([]string(nil), g.DelayInfo...)
	return c
}

// Dispose detaches every mesh and releases the GPU buffers.
func (g *Geometry) Dispose() error {
	if g.disposed {
		return nil
	}
	for len(g.meshes) > 0 {
		g.ReleaseForMesh(g.meshes[0], false)
	}

	var err error
	for kind, vb := range g.vertexBuffers {
		if e := vb.Dispose(); e != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", kind, e))
		}
	}
	g.vertexBuffers = make(map[string]*gpu.VertexBuffer)
	g.totalVertices = 0
	if g.indexBuffer != nil && g.engine != nil {
		err = multierr.Append(err, g.engine.ReleaseBuffer(g.indexBuffer))
	}
	g.indexBuffer = nil
	g.indices = nil
	g.loadState = DelayLoadNone
	g.DelayLoadingFile = ""
	g.DelayInfo = nil
	g.hasExtend = false

	g.scene.RemoveGeometry(g)
	g.disposed = true
	return err
}
