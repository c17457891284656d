// scenetool is a headless CLI for inspecting, sampling and converting
// scene files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/scenegraph/internal/config"
	"github.com/Faultbox/scenegraph/internal/demo"
	"github.com/Faultbox/scenegraph/internal/engine/camera"
	"github.com/Faultbox/scenegraph/internal/engine/gltfexport"
	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	"github.com/Faultbox/scenegraph/internal/engine/scene"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := logger.Init("warn", ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "inspect", "info":
		cmdInspect(args)
	case "sample":
		cmdSample(args)
	case "export", "x":
		cmdExport(args)
	case "demo":
		cmdDemo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`scenetool - scene file utility

Usage:
  scenetool <command> [options]

Commands:
  inspect [-v] <scene.json>                 Show scene contents
  sample [-at 1s] [-frames 1] <scene.json>  Render headless and print frame stats
  export <scene.json> <out.gltf|out.glb>    Convert meshes to glTF
  demo <out.json>                           Write the built-in demo scene

Examples:
  scenetool inspect scene.json
  scenetool sample -at 2s -frames 3 scene.json
  scenetool export scene.json scene.glb`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func load(path string, engine gpu.Engine) *scene.Scene {
	s := scene.New(engine, scene.ConfigFrom(config.Default()))
	if err := s.LoadFile(path); err != nil {
		fail(err)
	}
	return s
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	verbose := fs.Bool("v", false, "dump the serialized scene")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scenetool inspect [-v] <scene.json>")
		os.Exit(1)
	}

	s := load(fs.Arg(0), gpu.NewRecorder(1, 1))
	defer s.Dispose()

	fmt.Printf("Scene: %s\n", fs.Arg(0))
	fmt.Printf("Cameras:    %d\n", len(s.Cameras()))
	fmt.Printf("Materials:  %d\n", len(s.Materials()))
	fmt.Printf("Geometries: %d\n", len(s.Geometries()))
	fmt.Printf("Skeletons:  %d\n", len(s.Skeletons()))
	fmt.Printf("Meshes:     %d\n", len(s.Meshes()))
	if c := s.ActiveCamera(); c != nil {
		fmt.Printf("Active camera: %s\n", c.Name)
	}

	names := make([]string, 0, len(s.Meshes()))
	vertices := 0
	for _, m := range s.Meshes() {
		names = append(names, m.TransformNode().Name)
		vertices += m.TotalVertices()
	}
	sort.Strings(names)
	fmt.Printf("Vertices:   %d\n", vertices)
	fmt.Println("\nMeshes:")
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}

	if *verbose {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
		fmt.Println()
		cfg.Dump(s.Serialize())
	}
}

func cmdSample(args []string) {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	at := fs.Duration("at", 0, "scene clock of the first frame")
	frames := fs.Int("frames", 1, "number of frames to render")
	step := fs.Duration("step", time.Second/60, "clock advance per frame")
	width := fs.Int("width", 1280, "render width")
	height := fs.Int("height", 720, "render height")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scenetool sample [-at dur] [-frames N] <scene.json>")
		os.Exit(1)
	}

	rec := gpu.NewRecorder(*width, *height)
	s := load(fs.Arg(0), rec)
	defer s.Dispose()

	if s.ActiveCamera() == nil {
		frame(s)
	}

	fmt.Printf("%-6s %-8s %-7s %-8s %-10s %-9s %-6s %s\n",
		"FRAME", "CLOCK", "PASSES", "MESHES", "VERTICES", "SUBMESH", "BONES", "DRAWS")
	for i := 0; i < *frames; i++ {
		rec.Reset()
		now := *at + time.Duration(i)*(*step)
		stats, err := s.Render(now)
		if err != nil {
			fail(err)
		}
		fmt.Printf("%-6d %-8s %-7d %-8d %-10d %-9d %-6d %d\n",
			stats.RenderID, now, stats.Passes, stats.ActiveMeshes, stats.TotalVertices,
			stats.DrawnSubMeshes, stats.ActiveBones, len(rec.Draws))
	}

	fmt.Println("\nDraw calls (last frame):")
	for i, d := range rec.Draws {
		kind := "arrays"
		if d.Indexed {
			kind = "elements"
		}
		fmt.Printf("  %3d %-8s fill=%d start=%d count=%d instances=%d\n", i, kind, d.Fill, d.Start, d.Count, d.Instances)
	}
	fmt.Printf("Live buffers: %d\n", rec.LiveBuffers())
}

// frame adds a target camera that sees every mesh.
func frame(s *scene.Scene) {
	minimum := math.Vec3{X: -1, Y: -1, Z: -1}
	maximum := math.Vec3{X: 1, Y: 1, Z: 1}
	first := true
	for _, m := range s.Meshes() {
		m.TransformNode().ComputeWorldMatrix(true)
		info := m.BoundingInfo()
		if info == nil {
			continue
		}
		if first {
			minimum, maximum = info.Box.MinimumWorld, info.Box.MaximumWorld
			first = false
			continue
		}
		minimum = minimum.Min(info.Box.MinimumWorld)
		maximum = maximum.Max(info.Box.MaximumWorld)
	}

	t := camera.NewTargetCamera("scenetool", math.Vec3{}, s)
	o := camera.NewOrbit()
	o.FitToBounds(minimum, maximum)
	o.Apply(t)
	s.SetActiveCamera(t.Camera)
}

func cmdExport(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: scenetool export <scene.json> <out.gltf|out.glb>")
		os.Exit(1)
	}

	s := load(args[0], gpu.NewRecorder(1, 1))
	defer s.Dispose()

	meshes := gltfexport.Exportable(s.Meshes())
	if err := gltfexport.WriteFile(args[1], meshes...); err != nil {
		fail(err)
	}
	fmt.Printf("Exported %d meshes to %s\n", len(meshes), args[1])
}

func cmdDemo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scenetool demo <out.json>")
		os.Exit(1)
	}

	cfg := config.Default()
	s := scene.New(gpu.NewRecorder(1, 1), scene.ConfigFrom(cfg))
	defer s.Dispose()

	objects, err := demo.Build(context.Background(), s, cfg)
	if err != nil {
		fail(err)
	}
	t := camera.NewTargetCamera("demo", math.Vec3{}, s)
	o := camera.NewOrbit()
	o.FitToBounds(demo.Bounds())
	o.Apply(t)
	s.SetActiveCamera(t.Camera)

	if err := s.SaveFile(args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("Wrote demo scene with %d meshes to %s\n", len(objects.Meshes()), args[0])
}
