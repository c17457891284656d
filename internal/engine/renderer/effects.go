package renderer

import (
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/shader"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// effect is a linked program with cached locations.
type effect struct {
	name     string
	program  uint32
	uniforms map[string]int32
	attribs  map[string]int32
}

func (e *effect) Name() string  { return e.name }
func (e *effect) IsReady() bool { return e.program != 0 }

func (e *effect) uniform(name string) int32 {
	loc, ok := e.uniforms[name]
	if !ok {
		loc = shader.Uniform(e.program, name)
		e.uniforms[name] = loc
	}
	return loc
}

func (e *effect) attribute(kind string) (uint32, bool) {
	loc, ok := e.attribs[kind]
	if !ok {
		loc = shader.Attribute(e.program, kind)
		e.attribs[kind] = loc
	}
	return uint32(loc), loc >= 0
}

func effectKey(name string, defines []string) string {
	return name + "|" + strings.Join(defines, "|")
}

// CreateEffect compiles the named program once per define set.
func (r *Renderer) CreateEffect(name string, defines []string) (gpu.Effect, error) {
	key := effectKey(name, defines)
	if e, ok := r.effects[key]; ok {
		return e, nil
	}
	program, err := shader.CompileEffect(name, defines)
	if err != nil {
		logger.Error("effect compilation failed",
			zap.String("effect", name),
			zap.Strings("defines", defines),
			zap.Error(err),
		)
		return nil, err
	}
	e := &effect{
		name:     name,
		program:  program,
		uniforms: make(map[string]int32),
		attribs:  make(map[string]int32),
	}
	r.effects[key] = e
	logger.Debug("effect compiled",
		zap.String("effect", name),
		zap.Strings("defines", defines),
		zap.Uint32("program", program),
	)
	return e, nil
}

func (r *Renderer) EnableEffect(eff gpu.Effect) {
	e, ok := eff.(*effect)
	if !ok || e == r.current {
		return
	}
	gl.UseProgram(e.program)
	r.current = e
}

func (r *Renderer) SetMatrix(eff gpu.Effect, uniform string, m math.Mat4) {
	if loc := r.location(eff, uniform); loc >= 0 {
		gl.UniformMatrix4fv(loc, 1, false, &m[0])
	}
}

func (r *Renderer) SetMatrices(eff gpu.Effect, uniform string, data []float32) {
	if len(data) < 16 {
		return
	}
	if loc := r.location(eff, uniform); loc >= 0 {
		count := min(len(data)/16, shader.MaxBones)
		gl.UniformMatrix4fv(loc, int32(count), false, &data[0])
	}
}

func (r *Renderer) SetFloat4(eff gpu.Effect, uniform string, x, y, z, w float32) {
	if loc := r.location(eff, uniform); loc >= 0 {
		gl.Uniform4f(loc, x, y, z, w)
	}
}

// location enables eff and resolves the uniform, -1 when unusable.
func (r *Renderer) location(eff gpu.Effect, uniform string) int32 {
	e, ok := eff.(*effect)
	if !ok {
		return -1
	}
	r.EnableEffect(e)
	return e.uniform(uniform)
}
