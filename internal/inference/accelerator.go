// Package inference implements the InferenceEngine (§4.7): a pluggable
// Accelerator behind a state machine that degrades to a deterministic
// procedural fallback whenever the real accelerator is absent, fails to
// load, or starts throwing. The fallback backend is a first-class,
// always-available Accelerator rather than a test-only stand-in, since
// §4.7 requires FALLBACK to be a real operating mode, not just a test seam.
package inference

import (
	"context"
	"errors"

	"github.com/aura-core/aura/internal/feature"
)

// Frame is an N×3 float32 particle position buffer, row-major (x,y,z per
// particle). Infer must never allocate on the hot path, so callers own
// the backing array via Engine.Infer's out parameter.
type Frame []float32

// ErrAcceleratorAbsent is returned by a backend's Load when the physical
// accelerator isn't present on this device.
var ErrAcceleratorAbsent = errors.New("inference: accelerator not present")

// ErrShapeMismatch is returned when a model's declared input width
// doesn't match feature.Size (§4.7, §9: schema and model are co-versioned
// artifacts).
var ErrShapeMismatch = errors.New("inference: model input shape does not match feature vector size")

// errShortBuffer is returned when Infer's out buffer is smaller than the
// configured particle count demands.
var errShortBuffer = errors.New("inference: output buffer too small")

// LoadOptions configures a backend Load call.
type LoadOptions struct {
	ParticleCount int
	WarmupFrames  int
}

// Accelerator is the low-level interface a concrete backend implements.
// Load is synchronous and may block; Infer MUST NOT allocate and MUST
// complete within the caller's frame budget.
type Accelerator interface {
	Load(ctx context.Context, modelPath string, opts LoadOptions) error
	Infer(v feature.Vector, out Frame) error
	Available() bool
	Close() error
}
