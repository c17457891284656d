package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/internal/engine/postprocess"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// VRMetrics describes a head mounted display. Distances are in meters.
type VRMetrics struct {
	HResolution            int
	VResolution            int
	HScreenSize            float32
	VScreenSize            float32
	VScreenCenter          float32
	EyeToScreenDistance    float32
	LensSeparationDistance float32
	InterpupillaryDistance float32
	DistortionK            [4]float32
	ChromaAbCorrection     [4]float32
	PostProcessScaleFactor float32
	LensCenterOffset       float32
	CompensateDistortion   bool
}

// DefaultVRMetrics returns the metrics of the reference development kit.
func DefaultVRMetrics() *VRMetrics {
	return &VRMetrics{
		HResolution:            1280,
		VResolution:            800,
		HScreenSize:            0.149759993,
		VScreenSize:            0.0935999975,
		VScreenCenter:          0.0467999987,
		EyeToScreenDistance:    0.0410000011,
		LensSeparationDistance: 0.0635000020,
		InterpupillaryDistance: 0.0640000030,
		DistortionK:            [4]float32{1.0, 0.219999999, 0.239999995, 0.0},
		ChromaAbCorrection:     [4]float32{0.995999992, -0.00400000019, 1.01400006, 0.0},
		PostProcessScaleFactor: 1.714605507808412,
		LensCenterOffset:       0.151976421,
		CompensateDistortion:   true,
	}
}

// AspectRatio is the aspect of one eye.
func (m *VRMetrics) AspectRatio() float32 {
	return float32(m.HResolution) / float32(2*m.VResolution)
}

// AspectRatioFov is the vertical field of view of one eye.
func (m *VRMetrics) AspectRatioFov() float32 {
	return 2 * math32.Atan((m.PostProcessScaleFactor*m.VScreenSize)/(2*m.EyeToScreenDistance))
}

func (m *VRMetrics) lensShift() float32 {
	meters := m.HScreenSize/4 - m.LensSeparationDistance/2
	return 4 * meters / m.HScreenSize
}

// LeftHMatrix shifts the left eye projection to the lens center.
func (m *VRMetrics) LeftHMatrix() math.Mat4 { return math.Translate(m.lensShift(), 0, 0) }

// RightHMatrix shifts the right eye projection to the lens center.
func (m *VRMetrics) RightHMatrix() math.Mat4 { return math.Translate(-m.lensShift(), 0, 0) }

// LeftPreViewMatrix offsets the left eye by half the interpupillary distance.
func (m *VRMetrics) LeftPreViewMatrix() math.Mat4 {
	return math.Translate(0.5*m.InterpupillaryDistance, 0, 0)
}

// RightPreViewMatrix offsets the right eye by half the interpupillary distance.
func (m *VRMetrics) RightPreViewMatrix() math.Mat4 {
	return math.Translate(-0.5*m.InterpupillaryDistance, 0, 0)
}

// Distortion returns the lens description used by the correction pass.
func (m *VRMetrics) Distortion() postprocess.Distortion {
	return postprocess.Distortion{
		K:                      m.DistortionK,
		PostProcessScaleFactor: m.PostProcessScaleFactor,
		LensCenterOffset:       m.LensCenterOffset,
	}
}

// EyeParameters is the device description of one eye.
type EyeParameters struct {
	RenderWidth  int
	RenderHeight int
	Offset       math.Vec3
}

// WebVRFrameData holds the per-frame matrices reported by a device, in the
// device's right-handed convention.
type WebVRFrameData struct {
	LeftProjectionMatrix  [16]float32
	LeftViewMatrix        [16]float32
	RightProjectionMatrix [16]float32
	RightViewMatrix       [16]float32
}

// WebVRDisplay reports the eye layout of a device.
type WebVRDisplay interface {
	EyeParameters(left bool) EyeParameters
}

// WebVRDevice ties a display to the frame data it refreshes.
type WebVRDevice struct {
	Display WebVRDisplay
	// Frame is read by the eyes every time their matrices are requested.
	Frame *WebVRFrameData
	// DeviceScaleFactor scales the reported eye translation; zero or one
	// leaves it unchanged.
	DeviceScaleFactor float32
}
