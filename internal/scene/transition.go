package scene

import "time"

// Snapshot captures the subset of a component's declared values that can be
// animated: position/size, rotation, and the color fields. Non-animatable
// fields (children, text content, shader bindings, ...) change instantly
// regardless of any transition.
type Snapshot struct {
	Position        Position
	BackgroundColor Color
	BorderWidth     float64
	BorderColor     Color
	BoxShadowBlur   float64
	BoxShadowColor  Color
}

func snapshotOf(c Component) Snapshot {
	return Snapshot{
		Position:        c.Position,
		BackgroundColor: c.Background,
		BorderWidth:     c.BorderWidth,
		BorderColor:     c.BorderColor,
		BoxShadowBlur:   c.BoxShadowBlur,
		BoxShadowColor:  c.BoxShadowColor,
	}
}

// activeTransition is the resolved (start_snapshot, end, start_pts,
// duration, easing) 5-tuple evaluated lazily on every tick, never mutating
// the declared tree.
type activeTransition struct {
	Start    Snapshot
	End      Snapshot
	StartPTS time.Duration
	Duration time.Duration
	Easing   EasingFunction
	Bezier   [4]float64
}

// snapshotAt evaluates the transition's interpolated value at pts. Progress
// is clamped to [0,1] before easing, so callers may evaluate outside the
// transition's active window.
func (a activeTransition) snapshotAt(pts time.Duration) Snapshot {
	if a.Duration <= 0 {
		return a.End
	}
	progress := float64(pts-a.StartPTS) / float64(a.Duration)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	eased := Ease(a.Easing, a.Bezier, progress)
	return interpolateSnapshot(a.Start, a.End, eased)
}

func (a activeTransition) done(pts time.Duration) bool {
	return pts >= a.StartPTS+a.Duration
}

func interpolateSnapshot(start, end Snapshot, t float64) Snapshot {
	return Snapshot{
		Position:        interpolatePosition(start.Position, end.Position, t),
		BackgroundColor: interpolateColor(start.BackgroundColor, end.BackgroundColor, t),
		BorderWidth:     lerpF(start.BorderWidth, end.BorderWidth, t),
		BorderColor:     interpolateColor(start.BorderColor, end.BorderColor, t),
		BoxShadowBlur:   lerpF(start.BoxShadowBlur, end.BoxShadowBlur, t),
		BoxShadowColor:  interpolateColor(start.BoxShadowColor, end.BoxShadowColor, t),
	}
}

func interpolatePosition(start, end Position, t float64) Position {
	out := end
	out.Width = lerpIntPtr(start.Width, end.Width, t)
	out.Height = lerpIntPtr(start.Height, end.Height, t)
	out.Top = lerpIntPtr(start.Top, end.Top, t)
	out.Bottom = lerpIntPtr(start.Bottom, end.Bottom, t)
	out.Left = lerpIntPtr(start.Left, end.Left, t)
	out.Right = lerpIntPtr(start.Right, end.Right, t)
	out.AbsWidth = lerpIntPtr(start.AbsWidth, end.AbsWidth, t)
	out.AbsHeight = lerpIntPtr(start.AbsHeight, end.AbsHeight, t)
	out.RotationDegrees = lerpF(start.RotationDegrees, end.RotationDegrees, t)
	return out
}

func lerpIntPtr(start, end *int, t float64) *int {
	if end == nil {
		return nil
	}
	s := 0
	if start != nil {
		s = *start
	}
	v := int(lerpF(float64(s), float64(*end), t))
	return &v
}

func lerpF(a, b, t float64) float64 {
	return a + (b-a)*t
}

func interpolateColor(a, b Color, t float64) Color {
	return Color{
		R: lerpByte(a.R, b.R, t),
		G: lerpByte(a.G, b.G, t),
		B: lerpByte(a.B, b.B, t),
		A: lerpByte(a.A, b.A, t),
	}
}

func lerpByte(a, b uint8, t float64) uint8 {
	v := lerpF(float64(a), float64(b), t)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func applySnapshot(c Component, s Snapshot) Component {
	c.Position = s.Position
	c.Background = s.BackgroundColor
	c.BorderWidth = s.BorderWidth
	c.BorderColor = s.BorderColor
	c.BoxShadowBlur = s.BoxShadowBlur
	c.BoxShadowColor = s.BoxShadowColor
	return c
}
