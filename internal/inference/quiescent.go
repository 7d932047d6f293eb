package inference

import (
	"context"

	"github.com/aura-core/aura/internal/feature"
)

// quiescentBackend is the other §6 `fallback_mode` option: a motionless
// fallback that holds the particles at their base sphere positions
// rather than procedural's slow wobble. Chosen for installs where a
// static "idle" badge is preferred to a visibly animated degraded state
// (e.g. a display mounted somewhere a drifting frame would read as a
// malfunction rather than a deliberate fallback).
type quiescentBackend struct {
	particleCount int
	base          []float32 // precomputed unit-sphere base positions, N*3
}

func newQuiescentBackend() *quiescentBackend {
	return &quiescentBackend{}
}

func (q *quiescentBackend) Load(ctx context.Context, modelPath string, opts LoadOptions) error {
	n := opts.ParticleCount
	if n <= 0 {
		n = 1
	}
	q.particleCount = n
	q.base = fibonacciSphere(n)
	return nil
}

// Infer copies the static base positions into out every call: no motion,
// no dependency on the feature vector, still within budget and still
// free of NaN/Inf.
func (q *quiescentBackend) Infer(v feature.Vector, out Frame) error {
	if len(out) < q.particleCount*3 {
		return errShortBuffer
	}
	copy(out[:q.particleCount*3], q.base)
	return nil
}

func (q *quiescentBackend) Available() bool { return true }

func (q *quiescentBackend) Close() error { return nil }
