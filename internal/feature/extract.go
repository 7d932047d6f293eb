package feature

import "github.com/aura-core/aura/internal/worldstate"

// Vector is the fixed-length normalized feature vector consumed by the
// InferenceEngine. Every value is in [0,1]; never NaN or Inf.
type Vector [Size]float64

// Extract derives a Vector from snap and the current system probe
// reading. It is a pure function of its two inputs: identical snapshot
// and probe state always yield a bit-identical vector (§4.6, §8 S-series
// idempotence property).
func Extract(snap worldstate.Snapshot, probe Reading) Vector {
	var out Vector
	for i, field := range Schema {
		if field.Path == "" {
			out[i] = field.Default
			continue
		}
		if field.Path == systemCPUPath {
			out[i] = clamp01(probe.CPULoadPct / 100)
			continue
		}
		if field.Path == systemMemoryPath {
			out[i] = clamp01(probe.MemoryUsedPct / 100)
			continue
		}
		v, ok := snap.Get(field.Path)
		if !ok {
			out[i] = field.Default
			continue
		}
		out[i] = clamp01(field.Normalize(v))
	}
	return out
}

const (
	systemCPUPath    = "system.cpu_load_pct"
	systemMemoryPath = "system.memory_used_pct"
)
