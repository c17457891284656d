package camera

import (
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/postprocess"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// RigMode selects how a camera is split into eyes.
type RigMode int

const (
	RigNone                      RigMode = 0
	RigStereoAnaglyph            RigMode = 10
	RigStereoSideBySideParallel  RigMode = 11
	RigStereoSideBySideCrossEyed RigMode = 12
	RigStereoOverUnder           RigMode = 13
	RigVR                        RigMode = 20
	RigWebVR                     RigMode = 21
)

var rigModeNames = map[RigMode]string{
	RigNone:                      "none",
	RigStereoAnaglyph:            "anaglyph",
	RigStereoSideBySideParallel:  "sbs_parallel",
	RigStereoSideBySideCrossEyed: "sbs_crosseyed",
	RigStereoOverUnder:           "over_under",
	RigVR:                        "vr",
	RigWebVR:                     "webvr",
}

func (m RigMode) String() string {
	if n, ok := rigModeNames[m]; ok {
		return n
	}
	return "unknown"
}

// ParseRigMode maps a config name to a RigMode.
func ParseRigMode(name string) (RigMode, bool) {
	for m, n := range rigModeNames {
		if n == name {
			return m, true
		}
	}
	return RigNone, false
}

// ProjectionStrategy selects how a camera computes its projection.
type ProjectionStrategy int

const (
	ProjectionDefault ProjectionStrategy = iota
	// ProjectionVR uses the head mounted display metrics of the eye.
	ProjectionVR
	// ProjectionWebVR uses the matrices reported by the device each frame.
	ProjectionWebVR
)

const defaultInteraxialDistance = 0.0637

// RigParams configures SetCameraRigMode.
type RigParams struct {
	// InteraxialDistance is the eye separation; zero uses 0.0637.
	InteraxialDistance float32
	// VRMetrics describes the display for RigVR; nil uses DefaultVRMetrics.
	VRMetrics *VRMetrics
	// WebVR is the device for RigWebVR; without it the eyes are created
	// but not configured.
	WebVR *WebVRDevice
	// AlternateRendering renders the right eye in the left eye's pass.
	AlternateRendering bool
}

type rigState struct {
	interaxialDistance float32
	stereoHalfAngle    float32

	vrMetrics *VRMetrics
	hMatrix   math.Mat4
	preView   *math.Mat4

	leftEye     bool
	frame       *WebVRFrameData
	eye         EyeParameters
	scaleFactor float32
}

// InteraxialDistance returns the eye separation of the current rig.
func (c *Camera) InteraxialDistance() float32 { return c.rig.interaxialDistance }

// StereoHalfAngle is the angle each eye orbits the target by.
func (c *Camera) StereoHalfAngle() float32 { return c.rig.stereoHalfAngle }

// VRMetrics returns the display metrics of a VR eye.
func (c *Camera) VRMetrics() *VRMetrics { return c.rig.vrMetrics }

// EyeParameters returns the device eye description of a WebVR eye.
func (c *Camera) EyeParameters() EyeParameters { return c.rig.eye }

// IsLeftEye reports whether a WebVR rig camera renders the left eye.
func (c *Camera) IsLeftEye() bool { return c.rig.leftEye }

// SetCameraRigMode splits the camera into two eyes. Changing to the current
// mode does nothing.
func (c *Camera) SetCameraRigMode(mode RigMode, params RigParams) {
	if c.rigMode == mode {
		return
	}
	c.disposeRigCameras()

	c.rigMode = mode
	c.rig = rigState{interaxialDistance: params.InteraxialDistance}
	if c.rig.interaxialDistance == 0 {
		c.rig.interaxialDistance = defaultInteraxialDistance
	}
	c.rig.stereoHalfAngle = math.ToRadians(c.rig.interaxialDistance / defaultInteraxialDistance)

	if mode != RigNone && c.controller != nil {
		left := c.controller.CreateRigCamera(c, c.Name+"_L", 0)
		right := c.controller.CreateRigCamera(c, c.Name+"_R", 1)
		if left != nil && right != nil {
			left.rigParent, right.rigParent = c, c
			c.rigCameras = append(c.rigCameras, left, right)
		}
	}

	if len(c.rigCameras) == 2 {
		c.wireRig(mode, params)
	} else if mode != RigNone {
		logger.Debug("camera rig not supported", zap.String("camera", c.Name), zap.Stringer("mode", mode))
	}

	c.cascadePostProcessesToRigCams()
	c.Update()
}

func (c *Camera) wireRig(mode RigMode, params RigParams) {
	left, right := c.rigCameras[0], c.rigCameras[1]
	switch mode {
	case RigStereoAnaglyph:
		pass := postprocess.NewPass(c.Name+"_passthru", 1, left)
		left.rigPostProcess = pass
		right.rigPostProcess = postprocess.NewAnaglyph(c.Name+"_anaglyph", 1, pass, right)

	case RigStereoSideBySideParallel, RigStereoSideBySideCrossEyed, RigStereoOverUnder:
		horizontal := mode != RigStereoOverUnder
		pass := postprocess.NewPass(c.Name+"_passthru", 1, left)
		left.rigPostProcess = pass
		right.rigPostProcess = postprocess.NewStereoscopicInterlace(c.Name+"_stereoInterlace", pass, horizontal, right)

	case RigVR:
		metrics := params.VRMetrics
		if metrics == nil {
			metrics = DefaultVRMetrics()
		}
		left.configureVREye(metrics, gpu.Viewport{Width: 0.5, Height: 1}, metrics.LeftHMatrix(), metrics.LeftPreViewMatrix())
		right.configureVREye(metrics, gpu.Viewport{X: 0.5, Width: 0.5, Height: 1}, metrics.RightHMatrix(), metrics.RightPreViewMatrix())
		if metrics.CompensateDistortion {
			left.rigPostProcess = postprocess.NewVRDistortionCorrection(c.Name+"_distortionLeft", false, metrics.Distortion(), left)
			right.rigPostProcess = postprocess.NewVRDistortionCorrection(c.Name+"_distortionRight", true, metrics.Distortion(), right)
		}

	case RigWebVR:
		dev := params.WebVR
		if dev == nil {
			return
		}
		left.configureWebVREye(c, dev, true, gpu.Viewport{Width: 0.5, Height: 1})
		right.configureWebVREye(c, dev, false, gpu.Viewport{X: 0.5, Width: 0.5, Height: 1})
		if params.AlternateRendering {
			right.SkipRendering = true
			left.AlternateCamera = right
		}
	}
}

func (c *Camera) configureVREye(metrics *VRMetrics, vp gpu.Viewport, h, preView math.Mat4) {
	c.Viewport = vp
	c.rig.vrMetrics = metrics
	c.rig.hMatrix = h
	c.rig.preView = &preView
	c.strategy = ProjectionVR
}

func (c *Camera) configureWebVREye(parent *Camera, dev *WebVRDevice, left bool, vp gpu.Viewport) {
	c.Viewport = vp
	c.rig.leftEye = left
	c.rig.eye = dev.Display.EyeParameters(left)
	c.rig.frame = dev.Frame
	c.rig.scaleFactor = dev.DeviceScaleFactor
	c.parent = parent
	c.strategy = ProjectionWebVR
}

func (c *Camera) vrProjectionMatrix() math.Mat4 {
	m := c.rig.vrMetrics
	work := math.PerspectiveFovLH(m.AspectRatioFov(), m.AspectRatio(), c.MinZ, c.MaxZ, true)
	c.projection = c.rig.hMatrix.Mul(work)
	c.planesDirty = true
	return c.projection
}

func (c *Camera) webVRProjectionMatrix() math.Mat4 {
	src := c.rig.frame.RightProjectionMatrix
	if c.rig.leftEye {
		src = c.rig.frame.LeftProjectionMatrix
	}
	p := math.Mat4(src)
	if !c.rightHanded() {
		p[8], p[9], p[10], p[11] = -p[8], -p[9], -p[10], -p[11]
	}
	c.projection = p
	c.planesDirty = true
	return c.projection
}

func (c *Camera) webVRViewMatrix() math.Mat4 {
	src := c.rig.frame.RightViewMatrix
	if c.rig.leftEye {
		src = c.rig.frame.LeftViewMatrix
	}
	v := math.Mat4(src)
	if !c.rightHanded() {
		v[2], v[6], v[8], v[9], v[14] = -v[2], -v[6], -v[8], -v[9], -v[14]
	}
	if f := c.rig.scaleFactor; f != 0 && f != 1 {
		inv := v.Inverse()
		inv[12] *= f
		inv[13] *= f
		inv[14] *= f
		v = inv.Inverse()
	}
	if c.rigParent != nil {
		v = v.Mul(c.rigParent.ViewMatrix(false))
	}
	return v
}

// AttachPostProcess inserts pp into the chain at insertAt, or appends it
// when insertAt is negative. It returns the position of pp, or -1 when pp is
// already attached and not reusable.
func (c *Camera) AttachPostProcess(pp postprocess.PostProcess, insertAt int) int {
	if !pp.IsReusable() && slices.Contains(c.postProcesses, pp) {
		logger.Warn("post process is already attached and not reusable",
			zap.String("camera", c.Name), zap.String("postProcess", pp.Name()))
		return -1
	}
	if o, ok := pp.(interface{ AddOwner(postprocess.Owner) }); ok {
		o.AddOwner(c)
	}
	if insertAt < 0 || insertAt >= len(c.postProcesses) {
		c.postProcesses = append(c.postProcesses, pp)
	} else {
		c.postProcesses = slices.Insert(c.postProcesses, insertAt, pp)
	}
	c.cascadePostProcessesToRigCams()
	return slices.Index(c.postProcesses, pp)
}

// DetachPostProcess removes pp from the chain.
func (c *Camera) DetachPostProcess(pp postprocess.PostProcess) {
	if i := slices.Index(c.postProcesses, pp); i >= 0 {
		c.postProcesses = slices.Delete(c.postProcesses, i, i+1)
	}
	c.cascadePostProcessesToRigCams()
}

func (c *Camera) cascadePostProcessesToRigCams() {
	if len(c.postProcesses) > 0 {
		c.postProcesses[0].MarkTextureDirty()
	}
	for _, rc := range c.rigCameras {
		chain := slices.Clone(c.postProcesses)
		if pp := rc.rigPostProcess; pp != nil {
			if pp.Kind() == postprocess.KindPass {
				rc.IsIntermediate = len(c.postProcesses) == 0
			}
			rc.postProcesses = append(chain, pp)
			pp.MarkTextureDirty()
		} else {
			rc.postProcesses = chain
		}
	}
}
