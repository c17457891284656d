package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// SerializedCamera is the persisted form of a camera.
type SerializedCamera struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Position []float32 `json:"position"`
	UpVector []float32 `json:"upVector,omitempty"`
	// Rotation is pitch, yaw and roll of a target camera.
	Rotation  []float32    `json:"rotation,omitempty"`
	Fov       float32      `json:"fov"`
	MinZ      float32      `json:"minZ"`
	MaxZ      float32      `json:"maxZ"`
	Inertia   float32      `json:"inertia"`
	Mode      int          `json:"mode"`
	LayerMask uint32       `json:"layerMask"`
	Viewport  gpu.Viewport `json:"viewport"`

	RigMode            string  `json:"cameraRigMode,omitempty"`
	InteraxialDistance float32 `json:"interaxial_distance,omitempty"`
}

// Serialized is the persisted form of a scene.
type Serialized struct {
	UseRightHandedSystem bool `json:"useRightHandedSystem"`
	ActiveCameraID       string `json:"activeCameraID,omitempty"`

	Cameras        []*SerializedCamera        `json:"cameras,omitempty"`
	Materials      []*material.Serialized     `json:"materials,omitempty"`
	MultiMaterials []*material.Serialized     `json:"multiMaterials,omitempty"`
	Geometries     []*mesh.SerializedGeometry `json:"geometries,omitempty"`
	Skeletons      []*skeleton.Serialized     `json:"skeletons,omitempty"`
	Meshes         []*mesh.Serialized         `json:"meshes,omitempty"`
}

const (
	cameraTypeFree   = "free"
	cameraTypeTarget = "target"
)

func vec3(v math.Vec3) []float32 { return []float32{v.X, v.Y, v.Z} }

func serializeCamera(c *camera.Camera) *SerializedCamera {
	out := &SerializedCamera{
		ID:        c.ID,
		Name:      c.Name,
		Type:      cameraTypeFree,
		Position:  vec3(c.Position),
		UpVector:  vec3(c.UpVector),
		Fov:       c.Fov,
		MinZ:      c.MinZ,
		MaxZ:      c.MaxZ,
		Inertia:   c.Inertia,
		Mode:      int(c.Mode),
		LayerMask: c.LayerMask,
		Viewport:  c.Viewport,
	}
	if t, ok := c.Controller().(*camera.TargetCamera); ok {
		out.Type = cameraTypeTarget
		out.Rotation = vec3(t.Rotation)
	}
	if c.RigMode() != camera.RigNone {
		out.RigMode = c.RigMode().String()
		out.InteraxialDistance = c.InteraxialDistance()
	}
	return out
}

// Serialize captures every registered camera, material, geometry, skeleton
// and mesh. Instances are stored with their source mesh.
func (s *Scene) Serialize() *Serialized {
	out := &Serialized{UseRightHandedSystem: s.config.UseRightHandedSystem}
	if s.activeCamera != nil {
		out.ActiveCameraID = s.activeCamera.ID
	}
	for _, c := range s.cameras {
		out.Cameras = append(out.Cameras, serializeCamera(c))
	}
	for _, m := range s.materials {
		switch v := m.(type) {
		case *material.Multi:
			out.MultiMaterials = append(out.MultiMaterials, v.Serialize())
		case *material.Standard:
			out.Materials = append(out.Materials, v.Serialize())
		default:
			logger.Warn("material is not serializable", zap.String("material", m.Name()))
		}
	}
	for _, g := range s.geometries {
		out.Geometries = append(out.Geometries, g.Serialize())
	}
	for _, sk := range s.skeletons {
		out.Skeletons = append(out.Skeletons, sk.Serialize())
	}
	for _, am := range s.meshes {
		if m, ok := am.(*mesh.Mesh); ok {
			out.Meshes = append(out.Meshes, m.Serialize())
		}
	}
	return out
}

// Save writes the scene as JSON.
func (s *Scene) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Serialize()); err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}
	return nil
}

// SaveFile writes the scene to path.
func (s *Scene) SaveFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating scene file: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return s.Save(f)
}

func vecFrom(v []float32, fallback math.Vec3) math.Vec3 {
	if len(v) != 3 {
		return fallback
	}
	return math.Vec3FromSlice(v, 0)
}

func (s *Scene) parseCamera(data *SerializedCamera) *camera.Camera {
	pos := vecFrom(data.Position, math.Vec3{})
	var c *camera.Camera
	if data.Type == cameraTypeTarget {
		t := camera.NewTargetCamera(data.Name, pos, s)
		t.Rotation = vecFrom(data.Rotation, math.Vec3{})
		c = t.Camera
	} else {
		c = camera.New(data.Name, pos, s, nil)
	}
	c.ID = data.ID
	c.UpVector = vecFrom(data.UpVector, c.UpVector)
	c.Fov, c.MinZ, c.MaxZ, c.Inertia = data.Fov, data.MinZ, data.MaxZ, data.Inertia
	c.Mode = camera.Mode(data.Mode)
	c.LayerMask = data.LayerMask
	c.Viewport = data.Viewport

	if data.RigMode != "" {
		mode, ok := camera.ParseRigMode(data.RigMode)
		if !ok {
			logger.Warn("unknown camera rig mode", zap.String("camera", data.Name), zap.String("mode", data.RigMode))
		} else {
			c.SetCameraRigMode(mode, camera.RigParams{InteraxialDistance: data.InteraxialDistance})
		}
	}
	return c
}

// Parse adds the objects of data to the scene. Materials come first, then
// geometries and skeletons, then meshes, whose parents and levels of
// detail are linked once all of them exist.
func (s *Scene) Parse(data *Serialized) error {
	for _, md := range data.Materials {
		m, err := material.Parse(md, s, s.MaterialByID)
		if err != nil {
			return err
		}
		s.AddMaterial(m)
	}
	for _, md := range data.MultiMaterials {
		m, err := material.Parse(md, s, s.MaterialByID)
		if err != nil {
			return err
		}
		s.AddMaterial(m)
	}
	for _, gd := range data.Geometries {
		if s.GeometryByID(gd.ID) != nil {
			return fmt.Errorf("geometry %s: duplicate id", gd.ID)
		}
		mesh.ParseGeometry(gd, s)
	}
	for _, sd := range data.Skeletons {
		if _, err := skeleton.Parse(sd, s); err != nil {
			return fmt.Errorf("skeleton %s: %w", sd.Name, err)
		}
	}

	parsed := make([]*mesh.Mesh, 0, len(data.Meshes))
	for _, md := range data.Meshes {
		m, err := mesh.Parse(md, s, s)
		if err != nil {
			return err
		}
		parsed = append(parsed, m)
	}
	for i, m := range parsed {
		if err := mesh.Link(m, data.Meshes[i], s.MeshByID); err != nil {
			return err
		}
	}

	for _, cd := range data.Cameras {
		c := s.parseCamera(cd)
		if cd.ID != "" && cd.ID == data.ActiveCameraID {
			s.activeCamera = c
		}
	}
	return nil
}

// Load decodes a JSON scene from r and adds its objects to the scene.
func (s *Scene) Load(r io.Reader) error {
	var data Serialized
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("decoding scene: %w", err)
	}
	if data.UseRightHandedSystem != s.config.UseRightHandedSystem {
		logger.Warn("scene handedness differs from the file",
			zap.Bool("file", data.UseRightHandedSystem), zap.Bool("scene", s.config.UseRightHandedSystem))
	}
	if err := s.Parse(&data); err != nil {
		return fmt.Errorf("loading scene: %w", err)
	}
	return nil
}

// LoadFile loads the scene stored at path.
func (s *Scene) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening scene file: %w", err)
	}
	defer f.Close()
	return s.Load(f)
}
