// Package particles implements the ParticleInterpolator (spec §4.8): an
// exponential moving average smoother between consecutive inference
// frames, so the broadcast output never jumps discontinuously between
// model outputs sampled once per tick.
package particles

import "github.com/aura-core/aura/internal/inference"

// Interpolator holds the previous smoothed frame and blends each new
// frame into it with a fixed smoothing factor alpha.
type Interpolator struct {
	alpha float64
	prev  []float32
}

// New constructs an Interpolator with the given smoothing factor in
// (0,1]. Values closer to 1 track the latest frame more tightly; values
// closer to 0 smooth more aggressively.
func New(alpha float64) *Interpolator {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &Interpolator{alpha: alpha}
}

// Smooth blends next into the interpolator's running state and returns
// the result. The first call for a given particle count is a pure
// passthrough (no prior frame to blend against); a shape mismatch (the
// particle count changed since the last call) resets state rather than
// blending across incompatible buffers.
func (it *Interpolator) Smooth(next inference.Frame) []float32 {
	if it.prev == nil || len(it.prev) != len(next) {
		it.prev = append([]float32(nil), next...)
		return append([]float32(nil), it.prev...)
	}

	out := make([]float32, len(next))
	a := float32(it.alpha)
	for i, v := range next {
		out[i] = a*v + (1-a)*it.prev[i]
	}
	it.prev = out
	return out
}

// Reset clears the interpolator's running state, forcing the next Smooth
// call to be a passthrough.
func (it *Interpolator) Reset() {
	it.prev = nil
}
