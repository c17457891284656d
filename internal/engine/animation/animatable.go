package animation

import "time"

// Animatable plays a set of runtimes over a shared frame range.
type Animatable struct {
	From, To   float32
	Loop       bool
	SpeedRatio float32
	// OnEnd runs once when playback stops on its own or through Stop.
	OnEnd func()

	target   Target
	matrix   MatrixMode
	runtimes []*Runtime

	localOffset    time.Duration
	hasLocalOffset bool
	pausedAt       time.Duration
	hasPausedAt    bool
	paused         bool
	started        bool
	finished       bool
}

// NewAnimatable starts animations on target over [from,to].
func NewAnimatable(target Target, from, to float32, loop bool, speedRatio float32, onEnd func(), animations []*Animation, matrix MatrixMode) *Animatable {
	a := &Animatable{
		From:       from,
		To:         to,
		Loop:       loop,
		SpeedRatio: speedRatio,
		OnEnd:      onEnd,
		target:     target,
		matrix:     matrix,
	}
	a.AppendAnimations(target, animations)
	return a
}

// Target returns the object the first set of animations was bound to.
func (a *Animatable) Target() Target { return a.target }

// Runtimes returns the running curves.
func (a *Animatable) Runtimes() []*Runtime { return a.runtimes }

// Started reports whether the last Animate call advanced any curve.
func (a *Animatable) Started() bool { return a.started }

// Finished reports whether playback is over.
func (a *Animatable) Finished() bool { return a.finished }

// AppendAnimations binds more curves, possibly to another target.
func (a *Animatable) AppendAnimations(target Target, animations []*Animation) {
	for _, anim := range animations {
		a.runtimes = append(a.runtimes, NewRuntime(anim, target, a.matrix))
	}
}

// AnimationByTargetProperty returns the first curve animating property.
func (a *Animatable) AnimationByTargetProperty(property string) *Animation {
	for _, r := range a.runtimes {
		if r.animation.TargetProperty == property {
			return r.animation
		}
	}
	return nil
}

// Reset rewinds every runtime and forgets the start time.
func (a *Animatable) Reset() {
	for _, r := range a.runtimes {
		r.Reset()
	}
	a.hasLocalOffset = false
	a.hasPausedAt = false
}

// GoToFrame jumps every runtime to frame.
func (a *Animatable) GoToFrame(frame float32) {
	for _, r := range a.runtimes {
		r.GoToFrame(frame)
	}
}

func (a *Animatable) Pause()   { a.paused = true }
func (a *Animatable) Restart() { a.paused = false }

// Stop stops the curves named name, or all of them when name is empty.
// OnEnd runs once no curve is left.
func (a *Animatable) Stop(name string) {
	if name != "" {
		kept := a.runtimes[:0]
		for _, r := range a.runtimes {
			if r.animation.Name != name {
				kept = append(kept, r)
			}
		}
		a.runtimes = kept
		if len(a.runtimes) > 0 {
			return
		}
	}
	a.runtimes = nil
	a.finish()
}

func (a *Animatable) finish() {
	if a.finished {
		return
	}
	a.finished = true
	a.started = false
	if a.OnEnd != nil {
		end := a.OnEnd
		a.OnEnd = nil
		end()
	}
}

// Animate advances all curves to now, an absolute clock shared by the
// scene. It returns false once playback has ended.
func (a *Animatable) Animate(now time.Duration) bool {
	if a.finished {
		return false
	}
	if a.paused {
		a.started = false
		if !a.hasPausedAt {
			a.pausedAt = now
			a.hasPausedAt = true
		}
		return true
	}

	if !a.hasLocalOffset {
		a.localOffset = now
		a.hasLocalOffset = true
	} else if a.hasPausedAt {
		a.localOffset += now - a.pausedAt
		a.hasPausedAt = false
	}

	running := false
	for _, r := range a.runtimes {
		if r.Animate(now-a.localOffset, a.From, a.To, a.Loop, a.SpeedRatio) {
			running = true
		}
	}
	a.started = running

	if !running {
		a.finish()
	}
	return running
}
