// Package feature implements the FeatureExtractor (spec §4.6): a pure
// function from a WorldState snapshot to a fixed-length, normalized
// feature vector. The schema is fixed at F=68 (one of the two sizes named
// by the source material; see DESIGN.md for why 68 was chosen over 120)
// and expressed as an ordered table of field specs so the index→field
// mapping is a single, auditable place rather than scattered literals.
package feature

import "github.com/aura-core/aura/internal/worldstate"

// Size is the fixed feature-vector length this extractor produces. An
// InferenceEngine must refuse to load a model whose input shape doesn't
// match Size (§4.7, §9).
const Size = 68

// neutralBounded is the documented default for bounded-continuous fields
// the source snapshot doesn't have a reading for (§4.6, §8 S2).
const neutralBounded = 0.5

// neutralFlag is the documented default for count/flag-style fields.
const neutralFlag = 0.0

// FieldSpec names one feature-vector slot: which WorldState path feeds it,
// what neutral default to use when that path is absent or stale, and how
// to normalize a present reading into [0,1].
type FieldSpec struct {
	Name      string
	Path      string
	Default   float64
	Normalize func(raw worldstate.Value) float64
}

// clamp01 bounds x into [0,1], the universal post-condition on Normalize.
func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

func numberOr(v worldstate.Value, fallback float64) float64 {
	if v.Kind != worldstate.KindNumber {
		return fallback
	}
	return v.Number
}

func boolFlag(v worldstate.Value) float64 {
	if v.Kind == worldstate.KindBool && v.Bool {
		return 1
	}
	return 0
}

func divideBy(scale float64) func(worldstate.Value) float64 {
	return func(v worldstate.Value) float64 {
		return clamp01(numberOr(v, scale*neutralBounded) / scale)
	}
}

func dbfsToUnit(floorDb float64) func(worldstate.Value) float64 {
	return func(v worldstate.Value) float64 {
		raw := numberOr(v, floorDb)
		return clamp01((raw - floorDb) / -floorDb)
	}
}

func signedUnitFromRange(scale float64) func(worldstate.Value) float64 {
	return func(v worldstate.Value) float64 {
		raw := numberOr(v, 0)
		return clamp01((raw/scale + 1) / 2)
	}
}

// Schema is the ordered F=68 field table. Index i of a FeatureVector
// always corresponds to Schema[i].
var Schema = buildSchema()

func buildSchema() []FieldSpec {
	fields := []FieldSpec{
		{Name: "hardware.cpu_temp_c", Path: "hardware.cpu_temp_c", Default: neutralBounded, Normalize: divideBy(40)},
		{Name: "hardware.gpu_temp_c", Path: "hardware.gpu_temp_c", Default: neutralBounded, Normalize: divideBy(40)},
		{Name: "hardware.battery_percent", Path: "hardware.battery_percent", Default: neutralBounded, Normalize: divideBy(100)},
		{Name: "hardware.battery_charging", Path: "hardware.battery_charging", Default: neutralFlag, Normalize: boolFlag},
		{Name: "hardware.device_count", Path: "hardware.devices", Default: neutralFlag, Normalize: sequenceLengthCapped(16)},

		{Name: "system.cpu_load", Path: "system.cpu_load_pct", Default: neutralBounded, Normalize: divideBy(100)},
		{Name: "system.memory_used", Path: "system.memory_used_pct", Default: neutralBounded, Normalize: divideBy(100)},

		{Name: "wifi.network_count", Path: "wifi.networks", Default: neutralFlag, Normalize: sequenceLengthCapped(20)},
		{Name: "bluetooth.device_count", Path: "bluetooth.devices", Default: neutralFlag, Normalize: sequenceLengthCapped(10)},

		{Name: "environment.temperature", Path: "environment.temperature_c", Default: neutralBounded, Normalize: divideBy(40)},
		{Name: "environment.humidity", Path: "environment.humidity_pct", Default: neutralBounded, Normalize: divideBy(100)},
		{Name: "environment.pressure", Path: "environment.pressure_hpa", Default: neutralBounded, Normalize: divideBy(1100)},
		{Name: "environment.light", Path: "environment.light_lux", Default: neutralBounded, Normalize: divideBy(1000)},

		{Name: "imu.accel_x", Path: "imu.accel", Default: neutralBounded, Normalize: vectorComponent(0, 20)},
		{Name: "imu.accel_y", Path: "imu.accel", Default: neutralBounded, Normalize: vectorComponent(1, 20)},
		{Name: "imu.accel_z", Path: "imu.accel", Default: neutralBounded, Normalize: vectorComponent(2, 20)},
		{Name: "imu.gyro_x", Path: "imu.gyro", Default: neutralBounded, Normalize: vectorComponent(0, 10)},
		{Name: "imu.gyro_y", Path: "imu.gyro", Default: neutralBounded, Normalize: vectorComponent(1, 10)},
		{Name: "imu.gyro_z", Path: "imu.gyro", Default: neutralBounded, Normalize: vectorComponent(2, 10)},

		{Name: "audio.rms", Path: "audio.rms_dbfs", Default: neutralFlag, Normalize: dbfsToUnit(-60)},
		{Name: "audio.peak", Path: "audio.peak_dbfs", Default: neutralFlag, Normalize: dbfsToUnit(-60)},

		{Name: "vision.object_count", Path: "vision.detected_objects", Default: neutralFlag, Normalize: sequenceLengthCapped(10)},
		{Name: "vision.frame_rate", Path: "vision.frame_rate_hz", Default: neutralBounded, Normalize: divideBy(30)},

		{Name: "rf.sub_ghz.freq", Path: "rf.sub_ghz.last_freq_mhz", Default: neutralBounded, Normalize: divideBy(1000)},
		{Name: "rf.sub_ghz.signal", Path: "rf.sub_ghz.signal", Default: neutralFlag, Normalize: boolFlag},
	}

	// Pad the remainder of the F=68 budget with derived/reserved slots so
	// the schema's length is load-bearing and explicit rather than
	// implicit in a magic constant: reserved fields keep a stable index
	// for future sensors without reshuffling the ones above.
	for i := len(fields); i < Size; i++ {
		fields = append(fields, reservedField(i))
	}
	return fields
}

func reservedField(index int) FieldSpec {
	return FieldSpec{
		Name:    "reserved",
		Path:    "",
		Default: neutralBounded,
		Normalize: func(worldstate.Value) float64 {
			return neutralBounded
		},
	}
}

func sequenceLengthCapped(cap int) func(worldstate.Value) float64 {
	return func(v worldstate.Value) float64 {
		if v.Kind != worldstate.KindSequence {
			return 0
		}
		return clamp01(float64(len(v.Sequence)) / float64(cap))
	}
}

func vectorComponent(index int, scale float64) func(worldstate.Value) float64 {
	return func(v worldstate.Value) float64 {
		if v.Kind != worldstate.KindSequence || index >= len(v.Sequence) {
			return neutralBounded
		}
		return signedUnitFromRange(scale)(v.Sequence[index])
	}
}
