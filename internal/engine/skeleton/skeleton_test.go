package skeleton

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/internal/logger"
	"github.com/Faultbox/scenegraph/pkg/math"
)

type fakeScene struct {
	renderID    int
	skeletons   []*Skeleton
	removed     []*Skeleton
	stopped     []any
	activeBones int
}

func (f *fakeScene) RenderID() int              { return f.renderID }
func (f *fakeScene) AddSkeleton(s *Skeleton)    { f.skeletons = append(f.skeletons, s) }
func (f *fakeScene) RemoveSkeleton(s *Skeleton) { f.removed = append(f.removed, s) }
func (f *fakeScene) StopAnimation(target any)   { f.stopped = append(f.stopped, target) }
func (f *fakeScene) AddActiveBones(n int)       { f.activeBones += n }

type fakeMesh struct {
	pose math.Mat4
	buf  []float32
}

func (m *fakeMesh) PoseMatrix() math.Mat4                { return m.pose }
func (m *fakeMesh) BoneTransformMatrices() []float32     { return m.buf }
func (m *fakeMesh) SetBoneTransformMatrices(b []float32) { m.buf = b }

func mat(m math.Mat4) *math.Mat4 { return &m }

func slot(buf []float32, i int) math.Mat4 {
	return math.Mat4FromSlice(buf, i*16)
}

func assertMat(t *testing.T, want, got math.Mat4) {
	t.Helper()
	assert.True(t, want.ApproxEqual(got, 1e-4), "want %v, got %v", want, got)
}

func assertVec(t *testing.T, want, got math.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqual(got, 1e-4), "want %v, got %v", want, got)
}

func TestNewRegistersInScene(t *testing.T) {
	scene := &fakeScene{}
	s := New("rig", "rig-1", scene)
	assert.Equal(t, []*Skeleton{s}, scene.skeletons)
	assert.True(t, s.IsDirty())
}

func TestTransformBufferSize(t *testing.T) {
	for n := 0; n <= 3; n++ {
		scene := &fakeScene{}
		s := New("rig", "", scene)
		var parent *Bone
		for i := 0; i < n; i++ {
			parent = NewBone("b", s, parent, BoneOptions{LocalMatrix: mat(math.Translate(1, 0, 0))})
		}

		buf := s.TransformMatrices(nil)
		require.Len(t, buf, 16*(n+1), "bones=%d", n)
		assertMat(t, math.Identity(), slot(buf, n))
		assert.False(t, s.IsDirty())
		assert.Equal(t, n, scene.activeBones)
	}
}

func TestPrepareWritesSkinMatrices(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	b := NewBone("root", s, nil, BoneOptions{LocalMatrix: mat(math.Translate(1, 2, 3))})

	s.Prepare()
	assertMat(t, math.Identity(), slot(s.TransformMatrices(nil), 0))

	b.SetLocalPosition(math.Vec3{X: 5, Y: 2, Z: 3})
	assert.True(t, s.IsDirty())
	s.Prepare()
	assertMat(t, math.Translate(4, 0, 0), slot(s.TransformMatrices(nil), 0))
}

func TestPrepareSkipsExcludedBones(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	excluded := -1
	NewBone("helper", s, nil, BoneOptions{LocalMatrix: mat(math.Translate(1, 0, 0)), Index: &excluded})
	NewBone("root", s, nil, BoneOptions{})

	s.Prepare()
	buf := s.TransformMatrices(nil)
	require.Len(t, buf, 48)
	assert.Equal(t, math.Mat4{}, slot(buf, 0))
	assertMat(t, math.Identity(), slot(buf, 1))
	assertMat(t, math.Identity(), slot(buf, 2))
}

func TestPrepareChildUsesParentWorld(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	root := NewBone("root", s, nil, BoneOptions{LocalMatrix: mat(math.Translate(1, 0, 0))})
	child := NewBone("child", s, root, BoneOptions{LocalMatrix: mat(math.Translate(0, 2, 0))})

	assertMat(t, math.Translate(1, 2, 0), child.AbsoluteTransform())

	root.SetLocalPosition(math.Vec3{X: 3})
	s.Prepare()
	buf := s.TransformMatrices(nil)
	assertMat(t, math.Translate(2, 0, 0), slot(buf, 0))
	assertMat(t, math.Translate(2, 0, 0), slot(buf, 1))
	assertMat(t, math.Translate(3, 2, 0), child.WorldMatrix())
}

func TestInitialSkinMatrixPerMesh(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	s.NeedInitialSkinMatrix = true
	b := NewBone("root", s, nil, BoneOptions{})
	mesh := &fakeMesh{pose: math.Translate(0, 0, 5)}
	s.RegisterMeshWithPoseMatrix(mesh)

	s.Prepare()
	require.Len(t, mesh.buf, 32)
	assert.Equal(t, mesh.buf, s.TransformMatrices(mesh))
	assertMat(t, math.Translate(0, 0, 5), b.AbsoluteTransform())
	assertMat(t, math.Identity(), slot(mesh.buf, 0))

	b.SetLocalPosition(math.Vec3{X: 1})
	s.Prepare()
	assertMat(t, math.Translate(1, 0, 0), slot(mesh.buf, 0))

	pose, ok := s.PoseMatrix()
	require.True(t, ok)
	assertMat(t, mesh.pose, pose)

	s.UnregisterMeshWithPoseMatrix(mesh)
	assert.Empty(t, s.MeshesWithPoseMatrix())
	_, ok = s.PoseMatrix()
	assert.False(t, ok)
}

func TestLocalMatrixWinsOverPendingCompose(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	b := NewBone("root", s, nil, BoneOptions{})

	b.SetLocalPosition(math.Vec3{X: 1, Y: 1, Z: 1})
	assert.True(t, b.NeedToCompose())

	m := math.Translate(7, 8, 9)
	b.SetLocalMatrix(m)
	assert.False(t, b.NeedToCompose())
	assert.True(t, b.NeedToDecompose())
	assertMat(t, m, b.LocalMatrix())
	assertVec(t, math.Vec3{X: 7, Y: 8, Z: 9}, b.Position())
	assert.False(t, b.NeedToDecompose())
}

func TestSortBonesKeepsIndices(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	child := NewBone("child", s, nil, BoneOptions{})
	parent := NewBone("parent", s, nil, BoneOptions{})
	child.SetParent(parent, false)

	s.SortBones()
	require.Equal(t, []*Bone{parent, child}, s.Bones)
	assert.Equal(t, 0, child.Index())
	assert.Equal(t, 1, parent.Index())

	parent.SetLocalPosition(math.Vec3{Y: 1})
	s.Prepare()
	buf := s.TransformMatrices(nil)
	assertMat(t, math.Translate(0, 1, 0), slot(buf, 0))
	assertMat(t, math.Translate(0, 1, 0), slot(buf, 1))
}

func TestBoneIndexByName(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	NewBone("a", s, nil, BoneOptions{})
	b := NewBone("b", s, nil, BoneOptions{})

	assert.Equal(t, 1, s.BoneIndexByName("b"))
	assert.Equal(t, 1, s.BoneIndex(b))
	assert.Equal(t, -1, s.BoneIndexByName("missing"))
}

func TestWorldTranslate(t *testing.T) {
	scene := &fakeScene{}
	s := New("rig", "", scene)
	root := NewBone("root", s, nil, BoneOptions{LocalMatrix: mat(math.RotateZ(math.ToRadians(90)))})
	child := NewBone("child", s, root, BoneOptions{LocalMatrix: mat(math.Translate(0, 1, 0))})

	before := child.AbsolutePosition(nil)
	child.Translate(math.Vec3{X: 1}, World, nil)
	scene.renderID++

	assertVec(t, before.Add(math.Vec3{X: 1}), child.AbsolutePosition(nil))
}

func TestWorldSetPosition(t *testing.T) {
	scene := &fakeScene{}
	s := New("rig", "", scene)
	root := NewBone("root", s, nil, BoneOptions{LocalMatrix: mat(math.Translate(10, 0, 0))})
	child := NewBone("child", s, root, BoneOptions{})

	child.SetAbsolutePosition(math.Vec3{X: 12, Y: 3}, nil)
	scene.renderID++

	assertVec(t, math.Vec3{X: 2, Y: 3}, child.Position())
	assertVec(t, math.Vec3{X: 12, Y: 3}, child.AbsolutePosition(nil))
	assertVec(t, math.Vec3{X: 2, Y: 3}, child.GetPosition(Local, nil))
}

func TestLocalPositionFromAbsolute(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	b := NewBone("root", s, nil, BoneOptions{LocalMatrix: mat(math.Translate(1, 1, 1))})

	local := b.LocalPositionFromAbsolute(math.Vec3{X: 2, Y: 2, Z: 2}, nil)
	assertVec(t, math.Vec3{X: 1, Y: 1, Z: 1}, local)
	assertVec(t, math.Vec3{X: 2, Y: 2, Z: 2}, b.AbsolutePositionFromLocal(local, nil))
}

func TestScaleByCompensatesChildren(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	root := NewBone("root", s, nil, BoneOptions{})
	child := NewBone("child", s, root, BoneOptions{LocalMatrix: mat(math.Translate(0, 1, 0))})

	root.ScaleBy(2, 2, 2, false)
	assertVec(t, math.Vec3{X: 2, Y: 2, Z: 2}, root.Scale())
	assertVec(t, math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, child.Scale())
	assertVec(t, math.Vec3{Y: 1}, child.Position())
}

func matrixCurve(name string, frames ...float32) *animation.Animation {
	a := animation.New(name, MatrixProperty, 30, animation.TypeMatrix, animation.LoopCycle)
	for _, f := range frames {
		a.AddKey(animation.Key{Frame: f, Value: math.Translate(f, 0, 0)})
	}
	return a
}

func TestCopyAnimationRange(t *testing.T) {
	src := New("src", "", &fakeScene{})
	sb := NewBone("root", src, nil, BoneOptions{})
	sb.Animations = append(sb.Animations, matrixCurve("walk", 0, 10))
	src.CreateAnimationRange("walk", 0, 10)

	dst := New("dst", "", &fakeScene{})
	db := NewBone("root", dst, nil, BoneOptions{})
	db.Animations = append(db.Animations, matrixCurve("idle", 0, 20))

	ok, err := dst.CopyAnimationRange(src, "walk", false)
	require.NoError(t, err)
	assert.True(t, ok)

	r := dst.AnimationRange("walk")
	require.NotNil(t, r)
	assert.Equal(t, float32(21), r.From)
	assert.Equal(t, float32(31), r.To)

	keys := db.Animations[0].Keys()
	require.Len(t, keys, 4)
	assert.Equal(t, float32(21), keys[2].Frame)
	assert.Equal(t, float32(31), keys[3].Frame)
	assertMat(t, math.Translate(10, 0, 0), keys[3].Value.(math.Mat4))
	assert.NotNil(t, db.Animations[0].Range("walk"))

	_, err = dst.CopyAnimationRange(src, "walk", false)
	assert.True(t, errors.Is(err, ErrNoRange))
	_, err = dst.CopyAnimationRange(src, "run", false)
	assert.True(t, errors.Is(err, ErrNoRange))
}

func TestCopyAnimationRangeRescalesRoot(t *testing.T) {
	src := New("src", "", &fakeScene{})
	src.DimensionsAtRest = &math.Vec3{X: 1, Y: 1, Z: 1}
	sb := NewBone("root", src, nil, BoneOptions{})
	sb.Animations = append(sb.Animations, matrixCurve("walk", 0, 10))
	src.CreateAnimationRange("walk", 0, 10)

	dst := New("dst", "", &fakeScene{})
	dst.DimensionsAtRest = &math.Vec3{X: 2, Y: 2, Z: 2}
	db := NewBone("root", dst, nil, BoneOptions{})

	ok, err := dst.CopyAnimationRange(src, "walk", true)
	require.NoError(t, err)
	assert.True(t, ok)

	keys := db.Animations[0].Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, float32(1), keys[0].Frame)
	assertMat(t, math.Translate(20, 0, 0), keys[1].Value.(math.Mat4))
}

func TestCopyAnimationRangeBoneMismatch(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(nil)

	src := New("src", "", &fakeScene{})
	sb := NewBone("root", src, nil, BoneOptions{})
	sb.Animations = append(sb.Animations, matrixCurve("walk", 0, 10))
	src.CreateAnimationRange("walk", 0, 10)

	dst := New("dst", "", &fakeScene{})
	db := NewBone("root", dst, nil, BoneOptions{})
	NewBone("tail", dst, db, BoneOptions{})

	ok, err := dst.CopyAnimationRange(src, "walk", false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, db.Animations[0].Keys(), 2)
	assert.NotNil(t, dst.AnimationRange("walk"))
	assert.Equal(t, 2, logs.FilterMessageSnippet("copy animation range").Len())
}

func TestDeleteAnimationRange(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	b := NewBone("root", s, nil, BoneOptions{})
	b.Animations = append(b.Animations, matrixCurve("walk", 0, 5, 10))
	s.CreateAnimationRange("walk", 0, 5)
	s.CreateAnimationRange("run", 5, 10)

	require.Len(t, s.AnimationRanges(), 2)
	assert.Equal(t, "run", s.AnimationRanges()[0].Name)

	s.DeleteAnimationRange("walk", true)
	assert.Nil(t, s.AnimationRange("walk"))
	assert.Nil(t, b.Animations[0].Range("walk"))
	assert.Len(t, b.Animations[0].Keys(), 1)
}

func TestReturnToRest(t *testing.T) {
	s := New("rig", "", &fakeScene{})
	b := NewBone("root", s, nil, BoneOptions{LocalMatrix: mat(math.Translate(1, 0, 0))})

	b.SetLocalPosition(math.Vec3{X: 9})
	s.ReturnToRest()
	assertMat(t, math.Translate(1, 0, 0), b.LocalMatrix())
}

func TestClone(t *testing.T) {
	scene := &fakeScene{}
	s := New("rig", "rig", scene)
	root := NewBone("root", s, nil, BoneOptions{LocalMatrix: mat(math.Translate(1, 0, 0))})
	NewBone("child", s, root, BoneOptions{LocalMatrix: mat(math.Translate(0, 1, 0))})
	root.Animations = append(root.Animations, matrixCurve("walk", 0, 10))
	s.CreateAnimationRange("walk", 0, 10)

	c := s.Clone("copy", "")
	assert.Equal(t, "copy", c.ID)
	require.Len(t, c.Bones, 2)
	assert.Equal(t, c.Bones[0], c.Bones[1].Parent())
	assertMat(t, math.Translate(1, 1, 0), c.Bones[1].AbsoluteTransform())
	assert.NotNil(t, c.AnimationRange("walk"))
	require.Len(t, c.Bones[0].Animations, 1)
	assert.NotSame(t, root.Animations[0], c.Bones[0].Animations[0])
	assert.Len(t, scene.skeletons, 2)
}

func TestDispose(t *testing.T) {
	scene := &fakeScene{}
	s := New("rig", "", scene)
	s.RegisterMeshWithPoseMatrix(&fakeMesh{})

	s.Dispose()
	s.Dispose()
	assert.True(t, s.IsDisposed())
	assert.Equal(t, []*Skeleton{s}, scene.removed)
	assert.Equal(t, []any{s}, scene.stopped)
	assert.Empty(t, s.MeshesWithPoseMatrix())
}

func TestSerializeRoundTrip(t *testing.T) {
	s := New("rig", "rig-1", &fakeScene{})
	s.NeedInitialSkinMatrix = true
	s.DimensionsAtRest = &math.Vec3{X: 1, Y: 2, Z: 3}
	root := NewBone("root", s, nil, BoneOptions{LocalMatrix: mat(math.Translate(1, 0, 0))})
	root.Length = 2
	root.Animations = append(root.Animations, matrixCurve("walk", 0, 10))
	excluded := -1
	NewBone("child", s, root, BoneOptions{LocalMatrix: mat(math.Translate(0, 1, 0)), Index: &excluded})
	s.CreateAnimationRange("walk", 0, 10)

	data, err := json.Marshal(s.Serialize())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parentBoneIndex":-1`)
	assert.Contains(t, string(data), `"needInitialSkinMatrix":true`)

	var decoded Serialized
	require.NoError(t, json.Unmarshal(data, &decoded))
	scene := &fakeScene{}
	p, err := Parse(&decoded, scene)
	require.NoError(t, err)

	assert.Equal(t, "rig-1", p.ID)
	assert.True(t, p.NeedInitialSkinMatrix)
	assertVec(t, *s.DimensionsAtRest, *p.DimensionsAtRest)
	require.Len(t, p.Bones, 2)
	assert.Equal(t, p.Bones[0], p.Bones[1].Parent())
	assert.Equal(t, float32(2), p.Bones[0].Length)
	assert.Equal(t, -1, p.Bones[1].Index())
	assertMat(t, math.Translate(1, 1, 0), p.Bones[1].AbsoluteTransform())
	require.Len(t, p.Bones[0].Animations, 1)
	assert.Len(t, p.Bones[0].Animations[0].Keys(), 2)
	assert.NotNil(t, p.AnimationRange("walk"))
}

func TestParseRejectsForwardParent(t *testing.T) {
	scene := &fakeScene{}
	_, err := Parse(&Serialized{
		Name: "bad",
		Bones: []SerializedBone{
			{Name: "a", ParentBoneIndex: 1, Matrix: matrixSlice(math.Identity())},
			{Name: "b", ParentBoneIndex: -1, Matrix: matrixSlice(math.Identity())},
		},
	}, scene)
	require.Error(t, err)
	assert.Len(t, scene.removed, 1)
}

func TestParseRejectsBoneIndexOutOfRange(t *testing.T) {
	for _, index := range []int{-2, 1, 5} {
		scene := &fakeScene{}
		_, err := Parse(&Serialized{
			Name: "bad",
			Bones: []SerializedBone{
				{Name: "root", ParentBoneIndex: -1, Index: &index, Matrix: matrixSlice(math.Identity())},
			},
		}, scene)
		require.ErrorIs(t, err, ErrBoneIndex, "index %d", index)
		assert.Len(t, scene.removed, 1)
	}
}

func TestParseAcceptsBoneIndexInRange(t *testing.T) {
	for _, index := range []int{-1, 0} {
		scene := &fakeScene{}
		s, err := Parse(&Serialized{
			Name: "ok",
			Bones: []SerializedBone{
				{Name: "root", ParentBoneIndex: -1, Index: &index, Matrix: matrixSlice(math.Identity())},
			},
		}, scene)
		require.NoError(t, err)
		assert.NotPanics(t, s.Prepare)
	}
}
