// Package demo builds the built-in showcase scene: instancing, levels of
// detail, transparency, outlines and a skinned, animated mesh.
package demo

import (
	"context"
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/config"
	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/material"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/internal/engine/scene"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

const (
	groundSize  = 60
	crateGrid   = 6
	towerLOD    = 40
	towerCulled = 120
)

// Objects are the meshes and skeleton of the demo scene.
type Objects struct {
	Ground *mesh.Mesh
	Crates *mesh.Mesh
	Tower  *mesh.Mesh
	Glass  *mesh.Mesh
	Arm    *mesh.Mesh
	Rig    *skeleton.Skeleton
}

// Meshes lists the demo meshes, for export.
func (d *Objects) Meshes() []*mesh.Mesh {
	return []*mesh.Mesh{d.Ground, d.Crates, d.Tower, d.Glass, d.Arm}
}

func standard(s *scene.Scene, name string, c math.Color3) *material.Standard {
	m := material.NewStandard(name, s)
	m.DiffuseColor = c
	s.AddMaterial(m)
	return m
}

// Bounds returns the box enclosing the demo scene.
func Bounds() (minimum, maximum math.Vec3) {
	return math.Vec3{X: -groundSize / 2, Z: -groundSize / 2}, math.Vec3{X: groundSize / 2, Y: 8, Z: groundSize / 2}
}

// Build fills s with a ground, an instanced crate field, a tower with
// levels of detail, a spinning transparent box and a skinned arm, then
// starts their animations.
func Build(ctx context.Context, s *scene.Scene, cfg *config.Config) (*Objects, error) {
	fps := cfg.Animation.DefaultFPS
	if fps <= 0 {
		fps = 30
	}
	d := &Objects{}

	d.Ground = mesh.NewMesh("ground", s)
	grid(groundSize, 64).ApplyToMesh(d.Ground, true)
	d.Ground.Material = standard(s, "ground", math.Color3{R: 0.35, G: 0.4, B: 0.3})
	if path := cfg.Data.HeightMap; path != "" {
		d.Ground.ApplyDisplacementMap(ctx, path, 0, 4, nil, nil, false,
			func(*mesh.Mesh) { logger.Info("height map applied", zap.String("path", path)) },
			func(err error) { logger.Warn("height map failed", zap.String("path", path), zap.Error(err)) },
		)
	}

	d.Crates = mesh.NewMesh("crate", s)
	box(1).ApplyToMesh(d.Crates, false)
	d.Crates.Material = standard(s, "crate", math.Color3{R: 0.8, G: 0.5, B: 0.2})
	d.Crates.Position = math.Vec3{X: -15, Y: 0.5, Z: -15}
	for i := 1; i < crateGrid*crateGrid; i++ {
		inst := d.Crates.CreateInstance(fmt.Sprintf("crate-%d", i))
		inst.Position = math.Vec3{
			X: -15 + float32(i%crateGrid)*2,
			Y: 0.5,
			Z: -15 + float32(i/crateGrid)*2,
		}
		inst.Rotation.Y = float32(i) * 0.3
	}

	d.Tower = mesh.NewMesh("tower", s)
	box(1).ApplyToMesh(d.Tower, false)
	d.Tower.Material = standard(s, "tower", math.Color3{R: 0.7, G: 0.7, B: 0.75})
	d.Tower.Position = math.Vec3{X: 15, Y: 4, Z: 10}
	d.Tower.Scaling = math.Vec3{X: 2, Y: 8, Z: 2}
	low := mesh.NewMesh("tower-low", s)
	box(1).ApplyToMesh(low, false)
	low.Material = standard(s, "tower-low", math.Color3{R: 0.9, G: 0.2, B: 0.2})
	d.Tower.AddLODLevel(towerLOD, low)
	d.Tower.AddLODLevel(towerCulled, nil)

	glass := standard(s, "glass", math.Color3{R: 0.3, G: 0.6, B: 1})
	glass.Alpha = 0.4
	d.Glass = mesh.NewMesh("glass", s)
	box(3).ApplyToMesh(d.Glass, false)
	d.Glass.Material = glass
	d.Glass.Position = math.Vec3{Y: 2, Z: 8}
	d.Glass.RenderOutline = true
	d.Glass.OutlineWidth = 0.05
	spin := animation.New("spin", "rotation.y", fps, animation.TypeFloat, animation.LoopCycle)
	spin.SetKeys([]animation.Key{
		{Frame: 0, Value: float32(0)},
		{Frame: 4 * fps, Value: float32(2 * math32.Pi)},
	})
	d.Glass.Animations = append(d.Glass.Animations, spin)

	d.Arm, d.Rig = buildArm(s, fps)
	d.Rig.EnableBlending(cfg.Animation.BlendingSpeed)

	s.BeginAnimation(d.Glass, 0, 4*fps, true, 1, nil)
	if _, err := s.BeginSkeletonAnimation(d.Rig, "wave", true, 1, nil); err != nil {
		return nil, err
	}

	logger.Info("demo scene built",
		zap.Int("meshes", len(s.Meshes())),
		zap.Int("crates", len(d.Crates.Instances())+1),
		zap.Int("bones", len(d.Rig.Bones)),
	)
	return d, nil
}

// buildArm creates a two bone skeleton bending at the elbow and the mesh
// skinned to it.
func buildArm(s *scene.Scene, fps float32) (*mesh.Mesh, *skeleton.Skeleton) {
	const height = 6
	sk := skeleton.New("arm", "arm", s)
	shoulder := skeleton.NewBone("shoulder", sk, nil, skeleton.BoneOptions{})
	elbowRest := math.Translate(0, height/2, 0)
	elbow := skeleton.NewBone("elbow", sk, shoulder, skeleton.BoneOptions{LocalMatrix: &elbowRest})

	wave := animation.New("wave", skeleton.MatrixProperty, fps, animation.TypeMatrix, animation.LoopCycle)
	bent := math.RotateZ(0.9).Mul(elbowRest)
	wave.SetKeys([]animation.Key{
		{Frame: 0, Value: elbowRest},
		{Frame: fps, Value: bent},
		{Frame: 2 * fps, Value: elbowRest},
	})
	elbow.Animations = append(elbow.Animations, wave)
	sk.CreateAnimationRange("wave", 0, 2*fps)

	arm := mesh.NewMesh("arm", s)
	limb(0.8, height).ApplyToMesh(arm, false)
	arm.Material = standard(s, "arm", math.Color3{R: 0.3, G: 0.8, B: 0.4})
	arm.Position = math.Vec3{X: -6, Z: 6}
	arm.SetSkeleton(sk)
	return arm, sk
}

// ApplyCamera configures c from the camera section of the config. An
// unknown rig mode falls back to none.
func ApplyCamera(c *camera.Camera, cc config.CameraConfig) {
	if cc.FOV > 0 {
		c.Fov = cc.FOV
	}
	if cc.MinZ > 0 {
		c.MinZ = cc.MinZ
	}
	if cc.MaxZ > 0 {
		c.MaxZ = cc.MaxZ
	}
	mode, ok := camera.ParseRigMode(cc.RigMode)
	if !ok && cc.RigMode != "" {
		logger.Warn("unknown camera rig mode", zap.String("mode", cc.RigMode))
	}
	if mode == c.RigMode() && mode == camera.RigNone {
		return
	}
	c.SetCameraRigMode(mode, camera.RigParams{
		InteraxialDistance: cc.InteraxialDistance,
		AlternateRendering: cc.AlternateWebVRRendering,
	})
}
