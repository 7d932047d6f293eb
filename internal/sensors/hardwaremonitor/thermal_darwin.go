//go:build darwin

package hardwaremonitor

import (
	"os/exec"
	"strconv"
	"strings"
)

// probeThermal shells out to osx-cpu-temp if it's installed; GPU
// temperature has no stable unprivileged read on macOS, so GPUCelsius
// stays 0.
func probeThermal() ThermalReading {
	var r ThermalReading
	out, err := exec.Command("osx-cpu-temp").Output()
	if err != nil {
		return r
	}
	// Output format: "65.0°C"
	s := strings.TrimSuffix(strings.TrimSpace(string(out)), "°C")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return r
	}
	r.CPUCelsius = int(f)
	return r
}

// probeBattery parses `pmset -g batt` output for presence, charge, and AC
// state.
func probeBattery() BatteryReading {
	out, err := exec.Command("pmset", "-g", "batt").Output()
	if err != nil {
		return BatteryReading{}
	}
	text := string(out)
	if !strings.Contains(text, "Battery") {
		return BatteryReading{}
	}

	r := BatteryReading{
		Present:  true,
		Percent:  100,
		Charging: strings.Contains(text, "AC Power") || strings.Contains(text, "charging"),
	}
	for _, line := range strings.Split(text, "\n") {
		idx := strings.Index(line, "%")
		if idx <= 0 {
			continue
		}
		start := idx - 1
		for start > 0 && line[start-1] >= '0' && line[start-1] <= '9' {
			start--
		}
		if pct, err := strconv.Atoi(line[start:idx]); err == nil && pct > 0 {
			r.Percent = pct
			break
		}
	}
	return r
}
