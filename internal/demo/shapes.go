package demo

import (
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/pkg/math"
)

var boxFaces = [6][2]math.Vec3{
	{{Z: 1}, {Y: 1}},
	{{Z: -1}, {Y: 1}},
	{{X: 1}, {Y: 1}},
	{{X: -1}, {Y: 1}},
	{{Y: 1}, {Z: 1}},
	{{Y: -1}, {Z: 1}},
}

// box returns a cube of edge size centered on the origin, four vertices
// per face so every face keeps its own normal.
func box(size float32) *mesh.VertexData {
	h := size / 2
	vd := &mesh.VertexData{}
	for f, face := range boxFaces {
		n, up := face[0], face[1]
		side := up.Cross(n)
		corners := [4]math.Vec3{
			side.Scale(-1).Sub(up),
			side.Sub(up),
			side.Add(up),
			side.Scale(-1).Add(up),
		}
		for i, c := range corners {
			p := n.Add(c).Scale(h)
			vd.Positions = append(vd.Positions, p.X, p.Y, p.Z)
			vd.Normals = append(vd.Normals, n.X, n.Y, n.Z)
			vd.UVs = append(vd.UVs, float32(i&1^i>>1), float32(i>>1))
		}
		base := uint32(f * 4)
		vd.Indices = append(vd.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vd
}

// grid returns a flat square of edge size on the XZ plane split into
// subdivisions² quads, with UVs spanning [0,1].
func grid(size float32, subdivisions int) *mesh.VertexData {
	if subdivisions < 1 {
		subdivisions = 1
	}
	vd := &mesh.VertexData{}
	row := subdivisions + 1
	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			u := float32(x) / float32(subdivisions)
			v := float32(z) / float32(subdivisions)
			vd.Positions = append(vd.Positions, (u-0.5)*size, 0, (v-0.5)*size)
			vd.Normals = append(vd.Normals, 0, 1, 0)
			vd.UVs = append(vd.UVs, u, v)
		}
	}
	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			i := uint32(z*row + x)
			r := uint32(row)
			vd.Indices = append(vd.Indices, i, i+r, i+1, i+1, i+r, i+r+1)
		}
	}
	return vd
}

// limb returns a box of the given height standing on the origin whose
// vertices are skinned to bone 0 below half height and bone 1 above.
func limb(width, height float32) *mesh.VertexData {
	vd := box(1)
	for i := 0; i < len(vd.Positions); i += 3 {
		vd.Positions[i] *= width
		vd.Positions[i+1] = (vd.Positions[i+1] + 0.5) * height
		vd.Positions[i+2] *= width

		bone := float32(0)
		if vd.Positions[i+1] > height/2 {
			bone = 1
		}
		vd.MatricesIndices = append(vd.MatricesIndices, bone, 0, 0, 0)
		vd.MatricesWeights = append(vd.MatricesWeights, 1, 0, 0, 0)
	}
	return vd
}
