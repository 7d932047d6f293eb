package inference

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/aura-core/aura/internal/feature"
)

// proceduralBackend is the always-available fallback Accelerator (§4.7
// FALLBACK mode). It never fails to Load and Infer never allocates: the
// base sphere positions and per-particle phase offsets are precomputed
// once, and each Infer call only scales them in place by a sine of a
// running phase plus each particle's random phase offset, with the
// amplitude modulated by the current feature vector's mean.
type proceduralBackend struct {
	particleCount int
	base          []float32 // precomputed unit-sphere base positions, N*3
	phaseOffset   []float32 // per-particle phase jitter, N
	tick          float64
	startedAt     time.Time
}

func newProceduralBackend() *proceduralBackend {
	return &proceduralBackend{}
}

func (p *proceduralBackend) Load(ctx context.Context, modelPath string, opts LoadOptions) error {
	n := opts.ParticleCount
	if n <= 0 {
		n = 1
	}
	p.particleCount = n
	p.base = fibonacciSphere(n)
	p.phaseOffset = make([]float32, n)

	seed := time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))
	for i := range p.phaseOffset {
		p.phaseOffset[i] = float32(rng.Float64() * 2 * math.Pi)
	}
	p.startedAt = time.Now()
	return nil
}

// Infer produces a slowly-drifting deformation of the base sphere,
// modulated mildly by the feature vector's mean so the fallback still
// visibly reacts to sensor state without depending on any model.
func (p *proceduralBackend) Infer(v feature.Vector, out Frame) error {
	if len(out) < p.particleCount*3 {
		return errShortBuffer
	}
	p.tick += 1.0 / 60.0

	mod := meanOf(v)
	for i := 0; i < p.particleCount; i++ {
		wobble := 1 + 0.05*float32(math.Sin(p.tick+float64(p.phaseOffset[i])))*float32(0.5+mod)
		out[i*3+0] = p.base[i*3+0] * wobble
		out[i*3+1] = p.base[i*3+1] * wobble
		out[i*3+2] = p.base[i*3+2] * wobble
	}
	return nil
}

func (p *proceduralBackend) Available() bool { return true }

func (p *proceduralBackend) Close() error { return nil }

func meanOf(v feature.Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// fibonacciSphere distributes n points evenly over a unit sphere using
// the golden-angle spiral construction, a standard deterministic way to
// avoid pole clustering without any trigonometric table lookups.
func fibonacciSphere(n int) []float32 {
	out := make([]float32, n*3)
	goldenAngle := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		y := 1 - (float64(i)/float64(n-1+boolToInt(n == 1)))*2
		radius := math.Sqrt(math.Max(0, 1-y*y))
		theta := goldenAngle * float64(i)
		out[i*3+0] = float32(math.Cos(theta) * radius)
		out[i*3+1] = float32(y)
		out[i*3+2] = float32(math.Sin(theta) * radius)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
