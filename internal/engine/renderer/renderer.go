// Package renderer is the OpenGL 4.1 implementation of gpu.Engine.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	ClearColor math.Color3
}

// Renderer draws through the current OpenGL context.
type Renderer struct {
	config Config
	caps   gpu.Caps

	vao     uint32
	buffers map[*buffer]struct{}
	effects map[string]*effect
	current *effect

	// attribute locations enabled by the last BindBuffers
	enabled   []uint32
	instanced []uint32

	state state

	// offscreen target of Capture, created on first use
	capture *target
}

var _ gpu.Engine = (*Renderer)(nil)

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config:  cfg,
		buffers: make(map[*buffer]struct{}),
		effects: make(map[string]*effect),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))

	var maxAttribs int32
	gl.GetIntegerv(gl.MAX_VERTEX_ATTRIBS, &maxAttribs)
	r.caps = gpu.Caps{
		InstancedArrays:  true,
		UintIndices:      true,
		MaxVertexAttribs: int(maxAttribs),
	}

	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
		zap.Int("maxVertexAttribs", r.caps.MaxVertexAttribs),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.FrontFace(gl.CCW)
	c := cfg.ClearColor
	gl.ClearColor(c.R, c.G, c.B, 1)

	// core profile draws need a bound vertex array
	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)

	r.state.reset()
	return r, nil
}

// Close releases every buffer and program the renderer still owns.
func (r *Renderer) Close() error {
	logger.Info("closing renderer",
		zap.Int("buffers", len(r.buffers)),
		zap.Int("effects", len(r.effects)),
	)
	var err error
	for b := range r.buffers {
		err = multierr.Append(err, r.ReleaseBuffer(b))
	}
	for key, e := range r.effects {
		gl.DeleteProgram(e.program)
		delete(r.effects, key)
	}
	if r.capture != nil {
		r.capture.release()
		r.capture = nil
	}
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
		r.vao = 0
	}
	return err
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	r.SetDepthWrite(true)
	r.SetColorWrite(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// End finishes the current frame.
func (r *Renderer) End() {
	r.UnbindInstanceAttributes()
	r.SetAlphaMode(gpu.AlphaDisable)
}

func (r *Renderer) Caps() gpu.Caps    { return r.caps }
func (r *Renderer) RenderWidth() int  { return r.config.Width }
func (r *Renderer) RenderHeight() int { return r.config.Height }

func (r *Renderer) AspectRatio(vp gpu.Viewport) float32 {
	return aspectRatio(vp, r.config.Width, r.config.Height)
}

func aspectRatio(vp gpu.Viewport, width, height int) float32 {
	h := vp.Height * float32(height)
	if h == 0 {
		return 1
	}
	return vp.Width * float32(width) / h
}

// ReadPixels returns the RGBA content of the bound framebuffer, bottom
// row first.
func (r *Renderer) ReadPixels() (pixels []byte, width, height int) {
	width, height = r.config.Width, r.config.Height
	if width <= 0 || height <= 0 {
		return nil, 0, 0
	}
	pixels = make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}
