package mesh

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/chewxy/math32"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/scenegraph/internal/engine/gpu"
	_ "github.com/Faultbox/scenegraph/internal/engine/texture"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

// ApplyDisplacementMapFromBuffer moves every vertex along its normal by a
// height read from an RGBA buffer of width x height pixels at the vertex
// UV. The height spans [minHeight, maxHeight] over the pixel luminance.
// uvOffset and uvScale default to (0,0) and (1,1).
func (m *Mesh) ApplyDisplacementMapFromBuffer(buffer []uint8, width, height int, minHeight, maxHeight float32, uvOffset, uvScale *math.Vec2, forceUpdate bool) error {
	if !m.IsVerticesDataPresent(gpu.PositionKind) || !m.IsVerticesDataPresent(gpu.NormalKind) || !m.IsVerticesDataPresent(gpu.UVKind) {
		logger.Warn("displacement map needs positions, normals and uvs", zap.String("mesh", m.Name))
		return ErrMissingVertexData
	}
	if width <= 0 || height <= 0 || len(buffer) < width*height*4 {
		return fmt.Errorf("displacement map %dx%d with %d bytes: %w", width, height, len(buffer), ErrMissingVertexData)
	}

	positions := append([]float32(nil), m.VerticesData(gpu.PositionKind, false)...)
	normals := m.VerticesData(gpu.NormalKind, false)
	uvs := m.VerticesData(gpu.UVKind, false)

	offset := math.Vec2{}
	if uvOffset != nil {
		offset = *uvOffset
	}
	scale := math.Vec2{X: 1, Y: 1}
	if uvScale != nil {
		scale = *uvScale
	}

	w, h := float32(width), float32(height)
	for i, j := 0, 0; i+2 < len(positions) && j+1 < len(uvs); i, j = i+3, j+2 {
		u := int(math32.Mod(math32.Abs(uvs[j]*scale.X+offset.X)*w, w))
		v := int(math32.Mod(math32.Abs(uvs[j+1]*scale.Y+offset.Y)*h, h))
		pos := (u + v*width) * 4
		r := float32(buffer[pos]) / 255
		g := float32(buffer[pos+1]) / 255
		b := float32(buffer[pos+2]) / 255
		gradient := r*0.3 + g*0.59 + b*0.11

		n := math.Vec3FromSlice(normals, i).Normalize()
		p := math.Vec3FromSlice(positions, i).Add(n.Scale(minHeight + (maxHeight-minHeight)*gradient))
		p.PutSlice(positions, i)
	}

	recomputed := make([]float32, len(normals))
	ComputeNormals(positions, m.Indices(false), recomputed)

	if forceUpdate {
		m.SetVerticesData(gpu.PositionKind, positions, m.IsVertexBufferUpdatable(gpu.PositionKind))
		m.SetVerticesData(gpu.NormalKind, recomputed, m.IsVertexBufferUpdatable(gpu.NormalKind))
		return nil
	}
	if !m.UpdateVerticesData(gpu.PositionKind, positions, true, false) {
		m.SetVerticesData(gpu.PositionKind, positions, false)
	}
	if !m.UpdateVerticesData(gpu.NormalKind, recomputed, false, false) {
		m.SetVerticesData(gpu.NormalKind, recomputed, false)
	}
	return nil
}

// ApplyDisplacementMap decodes the image at path in the background and
// applies it on the render thread. PNG, JPEG, BMP and WebP are supported.
func (m *Mesh) ApplyDisplacementMap(ctx context.Context, path string, minHeight, maxHeight float32, uvOffset, uvScale *math.Vec2, forceUpdate bool, onSuccess func(*Mesh), onError func(error)) {
	go func() {
		pixels, width, height, err := LoadHeightMap(ctx, path)
		m.scene.Post(func() {
			if m.IsDisposed() {
				return
			}
			if err == nil {
				err = m.ApplyDisplacementMapFromBuffer(pixels, width, height, minHeight, maxHeight, uvOffset, uvScale, forceUpdate)
			}
			if err != nil {
				err = fmt.Errorf("displacement map %q: %w: %w", path, ErrLoadFailed, err)
				logger.Warn("displacement map failed", zap.String("mesh", m.Name), zap.Error(err))
				if onError != nil {
					onError(err)
				}
				return
			}
			if onSuccess != nil {
				onSuccess(m)
			}
		})
	}()
}

// LoadHeightMap decodes the image at path into tightly packed RGBA bytes.
func LoadHeightMap(ctx context.Context, path string) ([]uint8, int, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba.Pix, b.Dx(), b.Dy(), nil
}
