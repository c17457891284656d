package postprocess

import (
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// Anaglyph merges the left eye image, produced by passed, with the right
// eye image into a red/cyan frame.
type Anaglyph struct {
	Base
	passed PostProcess
}

// NewAnaglyph creates the combining pass for the right eye camera.
func NewAnaglyph(name string, ratio float32, passed PostProcess, camera Owner) *Anaglyph {
	return &Anaglyph{
		Base:   newBase(name, KindAnaglyph, "anaglyph", ratio, camera),
		passed: passed,
	}
}

// Passed returns the left eye pass sampled by this one.
func (a *Anaglyph) Passed() PostProcess { return a.passed }

func (a *Anaglyph) Apply(engine gpu.Engine, width, height int) bool {
	if a.passed == nil || a.passed.TextureDirty() {
		return false
	}
	return a.prepare(engine)
}

func (a *Anaglyph) Dispose(camera Owner)      { a.disposeFrom(a, camera) }
func (a *Anaglyph) Serialize() map[string]any { return a.serialize() }

func (a *Anaglyph) Clone() PostProcess {
	return NewAnaglyph(a.name, a.ratio, a.passed, nil)
}

// StereoscopicInterlace places both eye images side by side or one over
// the other.
type StereoscopicInterlace struct {
	Base
	passed     PostProcess
	horizontal bool
	stepSize   math.Vec2
}

// NewStereoscopicInterlace creates the interlacing pass. horizontal selects
// side by side output, otherwise the eyes are stacked.
func NewStereoscopicInterlace(name string, passed PostProcess, horizontal bool, camera Owner) *StereoscopicInterlace {
	s := &StereoscopicInterlace{
		Base:       newBase(name, KindStereoscopicInterlace, "stereoscopicInterlace", 1, camera),
		passed:     passed,
		horizontal: horizontal,
	}
	if horizontal {
		s.defines = []string{"IS_STEREOSCOPIC_HORIZ"}
	}
	return s
}

func (s *StereoscopicInterlace) Horizontal() bool    { return s.horizontal }
func (s *StereoscopicInterlace) Passed() PostProcess { return s.passed }
func (s *StereoscopicInterlace) StepSize() math.Vec2 { return s.stepSize }

func (s *StereoscopicInterlace) Apply(engine gpu.Engine, width, height int) bool {
	if s.passed == nil || width <= 0 || height <= 0 {
		return false
	}
	s.stepSize = math.Vec2{X: 1 / float32(width), Y: 1 / float32(height)}
	s.setFloat2("stepSize", s.stepSize)
	return s.prepare(engine)
}

func (s *StereoscopicInterlace) Dispose(camera Owner) { s.disposeFrom(s, camera) }

func (s *StereoscopicInterlace) Serialize() map[string]any {
	out := s.serialize()
	out["horizontal"] = s.horizontal
	return out
}

func (s *StereoscopicInterlace) Clone() PostProcess {
	return NewStereoscopicInterlace(s.name, s.passed, s.horizontal, nil)
}

// Distortion describes the lens of a head mounted display.
type Distortion struct {
	// K are the barrel distortion coefficients.
	K                      [4]float32
	PostProcessScaleFactor float32
	LensCenterOffset       float32
}

// VRDistortionCorrection undoes the lens distortion for one eye.
type VRDistortionCorrection struct {
	Base
	rightEye   bool
	distortion Distortion

	lensCenter math.Vec2
	scaleIn    math.Vec2
	scale      math.Vec2
}

// NewVRDistortionCorrection creates the correction pass for one eye.
func NewVRDistortionCorrection(name string, rightEye bool, d Distortion, camera Owner) *VRDistortionCorrection {
	return &VRDistortionCorrection{
		Base:       newBase(name, KindVRDistortionCorrection, "vrDistortionCorrection", 1, camera),
		rightEye:   rightEye,
		distortion: d,
	}
}

func (v *VRDistortionCorrection) RightEye() bool        { return v.rightEye }
func (v *VRDistortionCorrection) LensCenter() math.Vec2 { return v.lensCenter }
func (v *VRDistortionCorrection) ScaleIn() math.Vec2    { return v.scaleIn }
func (v *VRDistortionCorrection) Scale() math.Vec2      { return v.scale }

// Resize recomputes the lens parameters for a target of width x height.
func (v *VRDistortionCorrection) Resize(width, height int) {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	inv := 0.5 / v.distortion.PostProcessScaleFactor
	v.scaleIn = math.Vec2{X: 2, Y: 2 / aspect}
	v.scale = math.Vec2{X: inv, Y: inv * aspect}

	offset := v.distortion.LensCenterOffset * 0.5
	if v.rightEye {
		v.lensCenter = math.Vec2{X: 0.5 - offset, Y: 0.5}
	} else {
		v.lensCenter = math.Vec2{X: 0.5 + offset, Y: 0.5}
	}
}

func (v *VRDistortionCorrection) Apply(engine gpu.Engine, width, height int) bool {
	v.Resize(width, height)
	v.setFloat2("LensCenter", v.lensCenter)
	v.setFloat2("Scale", v.scale)
	v.setFloat2("ScaleIn", v.scaleIn)
	k := v.distortion.K
	v.setFloat4("HmdWarpParam", k[0], k[1], k[2], k[3])
	return v.prepare(engine)
}

func (v *VRDistortionCorrection) Dispose(camera Owner) { v.disposeFrom(v, camera) }

func (v *VRDistortionCorrection) Serialize() map[string]any {
	out := v.serialize()
	out["isRightEye"] = v.rightEye
	return out
}

func (v *VRDistortionCorrection) Clone() PostProcess {
	return NewVRDistortionCorrection(v.name, v.rightEye, v.distortion, nil)
}
