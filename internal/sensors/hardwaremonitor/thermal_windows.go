//go:build windows

package hardwaremonitor

import (
	"os/exec"
	"strconv"
	"strings"
)

// probeThermal queries the ACPI thermal zone over WMI. GPU temperature has
// no vendor-neutral WMI class, so GPUCelsius stays 0.
func probeThermal() ThermalReading {
	var r ThermalReading
	out, err := exec.Command("powershell", "-NoProfile", "-Command",
		`Get-CimInstance MSAcpi_ThermalZoneTemperature -Namespace root/wmi -ErrorAction SilentlyContinue | Select-Object -First 1 -ExpandProperty CurrentTemperature`).Output()
	if err != nil {
		return r
	}
	// WMI reports temperature in tenths of Kelvin.
	val, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return r
	}
	celsius := (val / 10) - 273
	if celsius < 0 || celsius > 150 {
		return r
	}
	r.CPUCelsius = celsius
	return r
}

// probeBattery queries Win32_Battery over WMI for presence, charge, and AC
// state.
func probeBattery() BatteryReading {
	countOut, err := exec.Command("powershell", "-NoProfile", "-Command",
		`(Get-CimInstance Win32_Battery -ErrorAction SilentlyContinue).Count`).Output()
	if err != nil {
		return BatteryReading{}
	}
	count, _ := strconv.Atoi(strings.TrimSpace(string(countOut)))
	if count == 0 {
		return BatteryReading{}
	}

	r := BatteryReading{Present: true, Percent: 100, Charging: true}
	if out, err := exec.Command("powershell", "-NoProfile", "-Command",
		`(Get-CimInstance Win32_Battery -ErrorAction SilentlyContinue).EstimatedChargeRemaining`).Output(); err == nil {
		if pct, err := strconv.Atoi(strings.TrimSpace(string(out))); err == nil && pct > 0 {
			r.Percent = pct
		}
	}
	if out, err := exec.Command("powershell", "-NoProfile", "-Command",
		`(Get-CimInstance Win32_Battery -ErrorAction SilentlyContinue).BatteryStatus`).Output(); err == nil {
		status, _ := strconv.Atoi(strings.TrimSpace(string(out)))
		r.Charging = status == 2 // 2 = AC connected / charging
	}
	return r
}
