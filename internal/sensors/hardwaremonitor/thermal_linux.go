//go:build linux

package hardwaremonitor

import (
	"os"
	"strconv"
	"strings"
)

// probeThermal reads CPU temperature from the sysfs thermal zone. GPU
// temperature has no portable sysfs path across the boards this daemon
// targets, so GPUCelsius stays 0 until a per-board path is added.
func probeThermal() ThermalReading {
	var r ThermalReading
	data, err := os.ReadFile("/sys/class/thermal/thermal_zone0/temp")
	if err != nil {
		return r
	}
	milliC, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return r
	}
	r.CPUCelsius = milliC / 1000
	return r
}

// probeBattery reads battery presence, charge, and AC state from sysfs.
func probeBattery() BatteryReading {
	if _, err := os.Stat("/sys/class/power_supply/BAT0"); err != nil {
		return BatteryReading{}
	}
	r := BatteryReading{Present: true, Percent: 100, Charging: true}

	if data, err := os.ReadFile("/sys/class/power_supply/BAT0/capacity"); err == nil {
		if pct, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pct > 0 {
			r.Percent = pct
		}
	}
	if data, err := os.ReadFile("/sys/class/power_supply/BAT0/status"); err == nil {
		r.Charging = strings.TrimSpace(string(data)) == "Charging"
	}
	return r
}
