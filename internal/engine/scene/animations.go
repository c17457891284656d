package scene

import (
	"fmt"
	"time"

	"golang.org/x/exp/slices"

	"github.com/Faultbox/scenegraph/internal/engine/animation"
	"github.com/Faultbox/scenegraph/internal/engine/mesh"
	"github.com/Faultbox/scenegraph/internal/engine/skeleton"
)

// Animated is implemented by custom animation targets that carry their
// own curves.
type Animated interface {
	animation.Target
	AnimationList() []*animation.Animation
}

type runningAnimation struct {
	owner      any
	animatable *animation.Animatable
}

// curves returns the animation target of v, its own curves and the
// objects animated along with it.
func curves(v any) (animation.Target, []*animation.Animation, []any) {
	switch t := v.(type) {
	case *mesh.Mesh:
		return t, t.Animations, nil
	case *mesh.InstancedMesh:
		return t.Node, t.Animations, nil
	case *skeleton.Bone:
		return t, t.Animations, nil
	case *skeleton.Skeleton:
		bones := t.Animatables()
		children := make([]any, len(bones))
		for i, b := range bones {
			children[i] = b
		}
		return nil, nil, children
	case Animated:
		return t, t.AnimationList(), nil
	}
	return nil, nil, nil
}

// BeginAnimation plays the curves of target and of its animated children
// over [from,to]. Animations already running on target are stopped first.
// A negative range plays backwards.
func (s *Scene) BeginAnimation(target any, from, to float32, loop bool, speedRatio float32, onEnd func()) *animation.Animatable {
	if from > to && speedRatio > 0 {
		speedRatio = -speedRatio
	}
	s.StopAnimation(target)

	a := animation.NewAnimatable(nil, from, to, loop, speedRatio, onEnd, nil, s.config.MatrixInterpolation)
	s.appendCurves(a, target)
	a.Reset()
	s.animatables = append(s.animatables, &runningAnimation{owner: target, animatable: a})
	return a
}

func (s *Scene) appendCurves(a *animation.Animatable, target any) {
	t, anims, children := curves(target)
	if t != nil && len(anims) > 0 {
		a.AppendAnimations(t, anims)
	}
	for _, child := range children {
		s.appendCurves(a, child)
	}
}

// BeginSkeletonAnimation plays the named animation range of sk.
func (s *Scene) BeginSkeletonAnimation(sk *skeleton.Skeleton, name string, loop bool, speedRatio float32, onEnd func()) (*animation.Animatable, error) {
	r := sk.AnimationRange(name)
	if r == nil {
		return nil, fmt.Errorf("%s: %w", name, skeleton.ErrNoRange)
	}
	return s.BeginAnimation(sk, r.From, r.To, loop, speedRatio, onEnd), nil
}

// StopAnimation stops every animation started on target.
func (s *Scene) StopAnimation(target any) {
	var stopped []*runningAnimation
	s.animatables = slices.DeleteFunc(s.animatables, func(r *runningAnimation) bool {
		if r.owner == target {
			stopped = append(stopped, r)
			return true
		}
		return false
	})
	for _, r := range stopped {
		r.animatable.Stop("")
	}
}

// AnimatablesOf returns the running animations started on target.
func (s *Scene) AnimatablesOf(target any) []*animation.Animatable {
	var out []*animation.Animatable
	for _, r := range s.animatables {
		if r.owner == target {
			out = append(out, r.animatable)
		}
	}
	return out
}

// Animate advances every running animation to now and drops the finished
// ones.
func (s *Scene) Animate(now time.Duration) {
	for _, r := range slices.Clone(s.animatables) {
		r.animatable.Animate(now)
	}
	s.animatables = slices.DeleteFunc(s.animatables, func(r *runningAnimation) bool {
		return r.animatable.Finished()
	})
}
