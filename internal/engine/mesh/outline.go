package mesh

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Outline draws mesh outlines and overlays with a dedicated effect.
type Outline struct {
	scene   Scene
	effects map[string]gpu.Effect
}

// NewOutline creates the outline renderer of scene.
func NewOutline(scene Scene) *Outline {
	return &Outline{scene: scene, effects: make(map[string]gpu.Effect)}
}

func (o *Outline) effect(m *Mesh, useInstances bool) (gpu.Effect, bool) {
	var defines []string
	if m.skeleton != nil {
		defines = append(defines, "BONES")
	}
	if useInstances {
		defines = append(defines, "INSTANCES")
	}
	key := strings.Join(defines, ";")
	effect, ok := o.effects[key]
	if !ok {
		var err error
		effect, err = o.scene.Engine().CreateEffect("outline", defines)
		if err != nil {
			logger.Warn("outline effect compilation failed", zap.Strings("defines", defines), zap.Error(err))
			return nil, false
		}
		o.effects[key] = effect
	}
	return effect, effect.IsReady()
}

// Render draws the outline of sm, or its overlay when overlay is set.
func (o *Outline) Render(sm *SubMesh, batch *InstancesBatch, overlay bool) {
	engine := o.scene.Engine()
	m := sm.RenderingMesh()
	hardware := engine.Caps().InstancedArrays && batch.VisibleInstances[sm.id] != nil

	effect, ok := o.effect(m, hardware)
	if !ok {
		return
	}
	engine.EnableEffect(effect)

	offset, color, alpha := m.OutlineWidth, m.OutlineColor, float32(1)
	if overlay {
		offset, color, alpha = 0, m.OverlayColor, m.OverlayAlpha
	}
	engine.SetFloat4(effect, "offset", offset, 0, 0, 0)
	engine.SetFloat4(effect, "color", color.R, color.G, color.B, alpha)
	engine.SetMatrix(effect, "viewProjection", o.scene.TransformMatrix())
	if bones := m.BoneMatrices(); bones != nil {
		engine.SetMatrices(effect, "mBones", bones)
	}

	m.bind(sm, effect, gpu.TriangleFillMode)
	m.processRendering(sm, effect, gpu.TriangleFillMode, batch, hardware, func(_ bool, world math.Mat4) {
		engine.SetMatrix(effect, "world", world)
	})
}
