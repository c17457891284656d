package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/scenegraph/internal/config"
	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/gltfexport"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/scene"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

func demoScene(t *testing.T) (*scene.Scene, *Objects) {
	t.Helper()
	cfg := config.Default()
	s := scene.New(gpu.NewRecorder(800, 600), scene.ConfigFrom(cfg))
	d, err := Build(context.Background(), s, cfg)
	require.NoError(t, err)
	return s, d
}

func observeWarnings(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })
	return logs
}

func TestBuild(t *testing.T) {
	s, d := demoScene(t)

	assert.Len(t, d.Crates.Instances(), crateGrid*crateGrid-1)
	require.Len(t, d.Tower.LODLevels(), 2)
	assert.Nil(t, d.Tower.LODLevels()[1].Mesh, "far level culls the tower")
	assert.Same(t, d.Rig, d.Arm.Skeleton())
	assert.Len(t, d.Rig.Bones, 2)
	assert.NotNil(t, d.Rig.AnimationRange("wave"))
	assert.True(t, d.Glass.Material.NeedAlphaBlending())

	assert.Len(t, s.AnimatablesOf(d.Glass), 1)
	assert.Len(t, s.AnimatablesOf(d.Rig), 1)
	assert.GreaterOrEqual(t, len(s.Materials()), 6)
}

func TestRenders(t *testing.T) {
	s, _ := demoScene(t)
	cam := camera.NewTargetCamera("viewer", math.Vec3{}, s)
	o := camera.NewOrbit()
	o.FitToBounds(Bounds())
	o.Apply(cam)
	require.True(t, s.SetActiveCamera(cam.Camera))

	stats, err := s.Render(0)
	require.NoError(t, err)
	assert.Positive(t, stats.ActiveMeshes)
	assert.Positive(t, stats.DrawnSubMeshes)
	assert.Equal(t, 1, stats.ActiveSkeletons)
}

func TestExports(t *testing.T) {
	s, d := demoScene(t)
	exportable := gltfexport.Exportable(s.Meshes())
	assert.ElementsMatch(t, d.Meshes(), exportable)

	doc, err := gltfexport.Document(exportable...)
	require.NoError(t, err)
	assert.Len(t, doc.Skins, 1)
	assert.Len(t, doc.Meshes, len(exportable))
}

func TestApplyCamera(t *testing.T) {
	s := scene.New(gpu.NewRecorder(800, 600), scene.DefaultConfig())
	cam := camera.New("cam", math.Vec3{Z: -10}, s, nil)

	cc := config.Default().Camera
	cc.FOV = 1.1
	cc.MaxZ = 500
	cc.RigMode = "anaglyph"
	ApplyCamera(cam, cc)
	assert.Equal(t, float32(1.1), cam.Fov)
	assert.Equal(t, float32(500), cam.MaxZ)
	assert.Equal(t, camera.RigStereoAnaglyph, cam.RigMode())

	logs := observeWarnings(t)
	cc.RigMode = "hologram"
	ApplyCamera(cam, cc)
	assert.Equal(t, camera.RigNone, cam.RigMode())
	assert.Equal(t, 1, logs.FilterMessage("unknown camera rig mode").Len())
}
