// Package viewer runs the interactive scene viewer: it owns the window,
// the OpenGL renderer and the scene, and drives them once per frame.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/scenegraph/internal/config"
	"github.com/Faultbox/scenegraph/internal/demo"
	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/debug"
	"github.com/Faultbox/scenegraph/internal/engine/gltfexport"
	"github.com/Faultbox/scenegraph/internal/engine/input"
	"github.com/Faultbox/scenegraph/internal/engine/renderer"
	"github.com/Faultbox/scenegraph/internal/engine/scene"
	"github.com/Faultbox/scenegraph/internal/engine/window"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// rigCycle is the order the R key steps through.
var rigCycle = []camera.RigMode{
	camera.RigNone,
	camera.RigStereoAnaglyph,
	camera.RigStereoSideBySideParallel,
	camera.RigStereoSideBySideCrossEyed,
	camera.RigStereoOverUnder,
	camera.RigVR,
}

// Viewer is the main viewer instance.
type Viewer struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	scene    *scene.Scene

	orbit  *camera.Orbit
	target *camera.TargetCamera

	screenshots debug.Screenshots
	capture     bool

	// work queued by other goroutines, run at the start of a frame
	tasks chan func()
}

// New opens the window and fills the scene from the configured scene
// file, or with the demo scene.
func New(ctx context.Context, cfg *config.Config) (*Viewer, error) {
	logger.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("rig", cfg.Camera.RigMode),
	)

	v := &Viewer{
		cfg:         cfg,
		screenshots: debug.Screenshots{Dir: "screenshots", Prefix: "scene"},
		tasks:       make(chan func(), 16),
	}

	// Create window (this also creates OpenGL context)
	var err error
	v.window, err = window.New(window.Config{
		Title:      "Scene Viewer",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	width, height := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{
		Width:      width,
		Height:     height,
		ClearColor: math.Color3{R: 0.1, G: 0.1, B: 0.15},
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.input = input.New()
	v.scene = scene.New(v.renderer, scene.ConfigFrom(cfg))

	if err := v.populate(ctx); err != nil {
		return nil, multierr.Append(err, v.Close())
	}

	logger.Info("viewer initialized successfully")
	return v, nil
}

// populate loads the scene file, or builds the demo, and sets up the
// orbit camera.
func (v *Viewer) populate(ctx context.Context) error {
	if path := v.cfg.Data.SceneFile; path != "" {
		if err := v.scene.LoadFile(path); err != nil {
			return fmt.Errorf("loading scene: %w", err)
		}
		logger.Info("scene loaded",
			zap.String("path", path),
			zap.Int("meshes", len(v.scene.Meshes())),
			zap.Int("cameras", len(v.scene.Cameras())),
		)
	} else {
		if _, err := demo.Build(ctx, v.scene, v.cfg); err != nil {
			return fmt.Errorf("building demo: %w", err)
		}
	}

	v.attachCamera()
	return nil
}

// attachCamera drives the active target camera with the orbit controls,
// creating a camera framing the demo bounds when the scene has none.
func (v *Viewer) attachCamera() {
	v.orbit = camera.NewOrbit()
	if active := v.scene.ActiveCamera(); active != nil {
		if t, ok := active.Controller().(*camera.TargetCamera); ok {
			v.target = t
			v.orbit.Center = t.Target()
			v.orbit.SetEye(t.Position)
		}
		return
	}

	v.target = camera.NewTargetCamera("viewer", math.Vec3{}, v.scene)
	v.orbit.FitToBounds(demo.Bounds())
	v.orbit.Apply(v.target)
	demo.ApplyCamera(v.target.Camera, v.cfg.Camera)
	v.scene.SetActiveCamera(v.target.Camera)
}

// Scene returns the scene being viewed.
func (v *Viewer) Scene() *scene.Scene { return v.scene }

// post queues fn for the render thread. It may be called from any
// goroutine; fn is dropped when the queue is full.
func (v *Viewer) post(fn func()) {
	select {
	case v.tasks <- fn:
	default:
		logger.Warn("viewer task queue full, dropping task")
	}
}

func (v *Viewer) runTasks() {
	for {
		select {
		case fn := <-v.tasks:
			fn()
		default:
			return
		}
	}
}

// Reload applies a changed config. It may be called from any goroutine;
// the change lands before the next frame.
func (v *Viewer) Reload(cfg *config.Config) {
	v.post(func() {
		v.cfg = cfg
		v.scene.SetForceWireframe(cfg.Scene.ForceWireframe)
		v.scene.SetForcePointsCloud(cfg.Scene.ForcePointsCloud)
		if cam := v.scene.ActiveCamera(); cam != nil {
			demo.ApplyCamera(cam, cfg.Camera)
		}
		if err := v.window.SetVSync(cfg.Graphics.VSync); err != nil {
			logger.Warn("vsync change failed", zap.Error(err))
		}
		if err := v.window.SetFullscreen(cfg.Graphics.Fullscreen); err != nil {
			logger.Warn("fullscreen change failed", zap.Error(err))
		}
	})
}

// Run starts the main loop. It returns when the window is closed, escape
// is pressed or ctx is cancelled.
func (v *Viewer) Run(ctx context.Context) error {
	v.running = true

	start := time.Now()
	lastTime := start
	frameCount := 0
	fpsTimer := start

	logger.Info("starting render loop")

	for v.running {
		if ctx.Err() != nil {
			break
		}
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if v.input.Update() {
			break
		}
		v.runTasks()
		v.handleInput()

		v.renderer.Begin()
		stats, err := v.scene.Render(now.Sub(start))
		if err != nil && !errors.Is(err, scene.ErrNoCamera) {
			return fmt.Errorf("render error: %w", err)
		}
		v.renderer.End()
		if v.capture {
			v.capture = false
			v.saveScreenshot(now.Sub(start))
		}
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			logger.Debug("fps",
				zap.Int("count", frameCount),
				zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)),
				zap.Int("activeMeshes", stats.ActiveMeshes),
				zap.Int("drawn", stats.DrawnSubMeshes),
				zap.Int("vertices", stats.TotalVertices),
				zap.Int("bones", stats.ActiveBones),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}

		v.limitFrameRate(now)
	}

	return nil
}

func (v *Viewer) limitFrameRate(frameStart time.Time) {
	if v.cfg.Graphics.VSync || v.cfg.Graphics.FPSLimit <= 0 {
		return
	}
	budget := time.Second / time.Duration(v.cfg.Graphics.FPSLimit)
	if elapsed := time.Since(frameStart); elapsed < budget {
		time.Sleep(budget - elapsed)
	}
}

func (v *Viewer) handleInput() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(v.window.DrawableSize())
		case input.EventKeyDown:
			v.handleKey(event.Key)
		}
	}

	if v.target == nil {
		return
	}
	dx, dy := v.input.Drag()
	if dx != 0 || dy != 0 {
		v.orbit.HandleDrag(dx, dy)
	}
	if w := v.input.Wheel(); w != 0 {
		v.orbit.HandleZoom(w)
	}
	forward := v.input.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S)
	right := v.input.Axis(sdl.SCANCODE_D, sdl.SCANCODE_A)
	up := v.input.Axis(sdl.SCANCODE_E, sdl.SCANCODE_Q)
	if forward != 0 || right != 0 || up != 0 {
		v.orbit.HandleMovement(forward, right, up)
	}
	v.orbit.Apply(v.target)
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_F1:
		v.scene.SetForceWireframe(!v.scene.ForceWireframe())
	case sdl.SCANCODE_R:
		if cam := v.scene.ActiveCamera(); cam != nil {
			next := nextRigMode(cam.RigMode())
			cam.SetCameraRigMode(next, camera.RigParams{InteraxialDistance: v.cfg.Camera.InteraxialDistance})
			logger.Info("camera rig mode", zap.Stringer("mode", next))
		}
	case sdl.SCANCODE_F3:
		v.chooseScene()
	case sdl.SCANCODE_F12:
		v.capture = true
	case sdl.SCANCODE_F5:
		if err := v.scene.SaveFile("scene.json"); err != nil {
			logger.Warn("saving scene failed", zap.Error(err))
		} else {
			logger.Info("scene saved", zap.String("path", "scene.json"))
		}
	case sdl.SCANCODE_F6:
		path := v.cfg.Data.ExportFile
		if err := gltfexport.WriteFile(path, gltfexport.Exportable(v.scene.Meshes())...); err != nil {
			logger.Warn("glTF export failed", zap.Error(err))
		} else {
			logger.Info("glTF exported", zap.String("path", path))
		}
	}
}

// saveScreenshot renders the scene again into an offscreen target of
// ScreenshotScale times the window size and writes it as PNG.
func (v *Viewer) saveScreenshot(now time.Duration) {
	scale := max(v.cfg.Graphics.ScreenshotScale, 1)
	width := v.renderer.RenderWidth() * scale
	height := v.renderer.RenderHeight() * scale
	pixels, err := v.renderer.Capture(width, height, func() error {
		_, err := v.scene.Render(now)
		return err
	})
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	path, err := v.screenshots.Save(pixels, width, height, time.Now())
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path), zap.Int("width", width), zap.Int("height", height))
}

// chooseScene asks for a scene file on a native dialog without blocking
// the frame loop, then opens the choice on the render thread.
func (v *Viewer) chooseScene() {
	go func() {
		path, err := dialog.File().
			Filter("Scene files", "json").
			Filter("All Files", "*").
			Title("Open Scene").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				logger.Warn("file dialog failed", zap.Error(err))
			}
			return
		}
		v.post(func() { v.open(path) })
	}()
}

// open replaces the viewed scene by the scene file at path. On error the
// current scene stays.
func (v *Viewer) open(path string) {
	next := scene.New(v.renderer, scene.ConfigFrom(v.cfg))
	if err := next.LoadFile(path); err != nil {
		logger.Warn("opening scene failed", zap.String("path", path), zap.Error(err))
		if derr := next.Dispose(); derr != nil {
			logger.Warn("scene cleanup failed", zap.Error(derr))
		}
		return
	}
	old := v.scene
	v.scene = next
	v.target = nil
	v.attachCamera()
	if err := old.Dispose(); err != nil {
		logger.Warn("scene cleanup failed", zap.Error(err))
	}
	logger.Info("scene opened", zap.String("path", path), zap.Int("meshes", len(next.Meshes())))
}

func nextRigMode(current camera.RigMode) camera.RigMode {
	for i, m := range rigCycle {
		if m == current {
			return rigCycle[(i+1)%len(rigCycle)]
		}
	}
	return camera.RigNone
}

// Close releases the scene, renderer and window.
func (v *Viewer) Close() error {
	logger.Info("closing viewer")

	var err error
	if v.scene != nil {
		err = multierr.Append(err, v.scene.Dispose())
	}
	if v.renderer != nil {
		err = multierr.Append(err, v.renderer.Close())
	}
	if v.window != nil {
		v.window.Close()
	}
	return err
}
