package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
)

// state mirrors the GL switches so redundant calls are skipped.
type state struct {
	alpha       gpu.AlphaMode
	depthWrite  bool
	culling     bool
	zOffset     float32
	reverseSide bool
	valid       bool
}

func (s *state) reset() {
	*s = state{alpha: gpu.AlphaDisable, depthWrite: true}
}

// blend holds the separate color and alpha factors of an alpha mode.
type blend struct {
	srcRGB, dstRGB, srcAlpha, dstAlpha uint32
}

// blendFactors returns the blend functions of mode. ok is false for
// AlphaDisable.
func blendFactors(mode gpu.AlphaMode) (blend, bool) {
	switch mode {
	case gpu.AlphaAdd:
		return blend{gl.SRC_ALPHA, gl.ONE, gl.ZERO, gl.ONE}, true
	case gpu.AlphaCombine:
		return blend{gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE}, true
	case gpu.AlphaSubtract:
		return blend{gl.ZERO, gl.ONE_MINUS_SRC_COLOR, gl.ONE, gl.ONE}, true
	case gpu.AlphaMultiply:
		return blend{gl.DST_COLOR, gl.ZERO, gl.ONE, gl.ONE}, true
	case gpu.AlphaMaximized:
		return blend{gl.SRC_ALPHA, gl.ONE_MINUS_SRC_COLOR, gl.ONE, gl.ONE}, true
	case gpu.AlphaOneOne:
		return blend{gl.ONE, gl.ONE, gl.ZERO, gl.ONE}, true
	case gpu.AlphaPremultiplied:
		return blend{gl.ONE, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE}, true
	default:
		return blend{}, false
	}
}

// primitive maps a fill mode to its GL topology. Wireframe draws use the
// lines index buffer the mesh builds.
func primitive(fill gpu.FillMode) uint32 {
	switch fill {
	case gpu.WireFrameFillMode, gpu.LineListDrawMode:
		return gl.LINES
	case gpu.PointFillMode, gpu.PointListDrawMode:
		return gl.POINTS
	case gpu.LineLoopDrawMode:
		return gl.LINE_LOOP
	case gpu.LineStripDrawMode:
		return gl.LINE_STRIP
	case gpu.TriangleStripDrawMode:
		return gl.TRIANGLE_STRIP
	case gpu.TriangleFanDrawMode:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}

func (r *Renderer) AlphaMode() gpu.AlphaMode { return r.state.alpha }
func (r *Renderer) DepthWrite() bool         { return r.state.depthWrite }

func (r *Renderer) SetAlphaMode(mode gpu.AlphaMode) {
	if r.state.valid && r.state.alpha == mode {
		return
	}
	r.state.alpha = mode
	f, ok := blendFactors(mode)
	if !ok {
		gl.Disable(gl.BLEND)
		return
	}
	gl.Enable(gl.BLEND)
	gl.BlendFuncSeparate(f.srcRGB, f.dstRGB, f.srcAlpha, f.dstAlpha)
}

func (r *Renderer) SetDepthWrite(enable bool) {
	r.state.depthWrite = enable
	gl.DepthMask(enable)
}

func (r *Renderer) SetColorWrite(enable bool) {
	gl.ColorMask(enable, enable, enable, enable)
}

// SetState configures face culling and depth offset. force reapplies
// values equal to the cached ones.
func (r *Renderer) SetState(culling bool, zOffset float32, force, reverseSide bool) {
	s := &r.state
	if force || !s.valid || s.culling != culling || s.reverseSide != reverseSide {
		if culling {
			gl.Enable(gl.CULL_FACE)
			if reverseSide {
				gl.CullFace(gl.FRONT)
			} else {
				gl.CullFace(gl.BACK)
			}
		} else {
			gl.Disable(gl.CULL_FACE)
		}
		s.culling, s.reverseSide = culling, reverseSide
	}
	if force || !s.valid || s.zOffset != zOffset {
		if zOffset != 0 {
			gl.Enable(gl.POLYGON_OFFSET_FILL)
			gl.PolygonOffset(zOffset, 0)
		} else {
			gl.Disable(gl.POLYGON_OFFSET_FILL)
		}
		s.zOffset = zOffset
	}
	s.valid = true
}

func (r *Renderer) SetViewport(vp gpu.Viewport) {
	x, y, w, h := vp.ToGlobal(r.config.Width, r.config.Height)
	gl.Viewport(int32(x), int32(y), int32(w), int32(h))
}

func (r *Renderer) DrawElementsType(fill gpu.FillMode, indexStart, indexCount, instancesCount int) {
	offset := gl.PtrOffset(indexStart * 4)
	if instancesCount > 0 {
		gl.DrawElementsInstanced(primitive(fill), int32(indexCount), gl.UNSIGNED_INT, offset, int32(instancesCount))
		return
	}
	gl.DrawElements(primitive(fill), int32(indexCount), gl.UNSIGNED_INT, offset)
}

func (r *Renderer) DrawArraysType(fill gpu.FillMode, verticesStart, verticesCount, instancesCount int) {
	if instancesCount > 0 {
		gl.DrawArraysInstanced(primitive(fill), int32(verticesStart), int32(verticesCount), int32(instancesCount))
		return
	}
	gl.DrawArrays(primitive(fill), int32(verticesStart), int32(verticesCount))
}
