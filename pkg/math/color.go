package math

// Color3 is an RGB color with components in [0, 1].
type Color3 struct {
	R, G, B float32
}

// Add returns c + other.
func (c Color3) Add(other Color3) Color3 {
	return Color3{c.R + other.R, c.G + other.G, c.B + other.B}
}

// Sub returns c - other.
func (c Color3) Sub(other Color3) Color3 {
	return Color3{c.R - other.R, c.G - other.G, c.B - other.B}
}

// Scale returns c * s.
func (c Color3) Scale(s float32) Color3 {
	return Color3{c.R * s, c.G * s, c.B * s}
}

// Lerp interpolates linearly towards other.
func (c Color3) Lerp(other Color3, t float32) Color3 {
	return Color3{
		c.R + (other.R-c.R)*t,
		c.G + (other.G-c.G)*t,
		c.B + (other.B-c.B)*t,
	}
}

// Array returns the components as a slice.
func (c Color3) Array() []float32 {
	return []float32{c.R, c.G, c.B}
}

// Size is a 2D extent.
type Size struct {
	Width, Height float32
}

// Add returns s + other.
func (s Size) Add(other Size) Size {
	return Size{s.Width + other.Width, s.Height + other.Height}
}

// Sub returns s - other.
func (s Size) Sub(other Size) Size {
	return Size{s.Width - other.Width, s.Height - other.Height}
}

// Scale returns s * f.
func (s Size) Scale(f float32) Size {
	return Size{s.Width * f, s.Height * f}
}

// Lerp interpolates linearly towards other.
func (s Size) Lerp(other Size, t float32) Size {
	return Size{s.Width + (other.Width-s.Width)*t, s.Height + (other.Height-s.Height)*t}
}

// Array returns the components as a slice.
func (s Size) Array() []float32 {
	return []float32{s.Width, s.Height}
}
