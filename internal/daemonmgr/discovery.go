package daemonmgr

import "path/filepath"

// devicePatterns maps a capability category to the glob patterns that
// indicate its hardware is present. Categories with no device-node
// concept (wifi, bluetooth, environment, imu, audio-level, vision) are
// always offered — their own Initialize fast-fail probe decides whether
// to actually run.
var devicePatterns = map[string][]string{
	"flipper": {"/dev/ttyACM*", "/dev/ttyUSB*"},
}

// alwaysOffered are capability categories discovered independent of any
// specific device path — each is started once per process if a
// constructor is registered for it.
var alwaysOffered = []string{
	"hardware-monitor", "wifi", "bluetooth", "environment", "imu", "audio-level", "vision",
}

// Discover enumerates the host for capabilities the manager knows how to
// look for. It never returns an error: an absent device is simply not a
// capability, not a failure.
func Discover() []Capability {
	var caps []Capability
	for _, category := range alwaysOffered {
		caps = append(caps, Capability{Category: category})
	}
	for category, patterns := range devicePatterns {
		for _, pattern := range patterns {
			matches, _ := filepath.Glob(pattern)
			for _, path := range matches {
				caps = append(caps, Capability{Category: category, DevicePath: path})
			}
		}
	}
	return caps
}
