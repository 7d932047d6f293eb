package inference

import (
	"context"

	"github.com/aura-core/aura/internal/feature"
)

// edgeTPUBackend is the real-hardware Accelerator. No Edge TPU driver
// library appears anywhere in the corpus this module was grounded on, and
// fabricating a binding would mean inventing a dependency the codebase
// never actually imports — so this stub reports ErrAcceleratorAbsent
// unconditionally, which is exactly the condition §4.7 says must drive
// the engine into FALLBACK. A real deployment swaps this type out for an
// actual binding behind the same Accelerator interface; nothing else in
// the engine needs to change.
type edgeTPUBackend struct{}

func newEdgeTPUBackend() *edgeTPUBackend {
	return &edgeTPUBackend{}
}

func (e *edgeTPUBackend) Load(ctx context.Context, modelPath string, opts LoadOptions) error {
	return ErrAcceleratorAbsent
}

func (e *edgeTPUBackend) Infer(v feature.Vector, out Frame) error {
	return ErrAcceleratorAbsent
}

func (e *edgeTPUBackend) Available() bool { return false }

func (e *edgeTPUBackend) Close() error { return nil }
