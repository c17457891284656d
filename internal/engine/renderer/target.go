package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/logger"
)

// target is an offscreen color and depth attachment pair.
type target struct {
	fbo   uint32
	color uint32
	depth uint32

	width, height int32
}

func newTarget(width, height int32) (*target, error) {
	t := &target{width: max(width, 1), height: max(height, 1)}

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	gl.GenTextures(1, &t.color)
	gl.GenRenderbuffers(1, &t.depth)
	t.allocate()
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.color, 0)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.release()
		return nil, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return t, nil
}

func (t *target) allocate() {
	gl.BindTexture(gl.TEXTURE_2D, t.color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, t.width, t.height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, t.width, t.height)
}

func (t *target) resize(width, height int32) {
	width, height = max(width, 1), max(height, 1)
	if width == t.width && height == t.height {
		return
	}
	t.width, t.height = width, height
	t.allocate()
}

func (t *target) release() {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
		t.fbo = 0
	}
	if t.color != 0 {
		gl.DeleteTextures(1, &t.color)
		t.color = 0
	}
	if t.depth != 0 {
		gl.DeleteRenderbuffers(1, &t.depth)
		t.depth = 0
	}
}

// Capture runs draw against an offscreen target of the given size and
// returns its RGBA pixels, bottom row first. RenderWidth and RenderHeight
// report the capture size while draw runs.
func (r *Renderer) Capture(width, height int, draw func() error) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", width, height)
	}
	if r.capture == nil {
		t, err := newTarget(int32(width), int32(height))
		if err != nil {
			return nil, fmt.Errorf("creating capture target: %w", err)
		}
		r.capture = t
	} else {
		r.capture.resize(int32(width), int32(height))
	}

	saved := r.config
	r.config.Width, r.config.Height = width, height
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.capture.fbo)
	gl.Viewport(0, 0, int32(width), int32(height))
	defer func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		r.config = saved
		gl.Viewport(0, 0, int32(saved.Width), int32(saved.Height))
	}()

	r.Begin()
	if err := draw(); err != nil {
		return nil, err
	}
	r.End()

	pixels, _, _ := r.ReadPixels()
	logger.Debug("captured frame", zap.Int("width", width), zap.Int("height", height))
	return pixels, nil
}
