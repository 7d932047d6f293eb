//go:build windows

package feature

// readCPULoad and readMemoryUsed have no dependency-free WMI/PDH binding
// in this module; both report the documented neutral default until a
// platform-specific reader is wired in.
func readCPULoad() float64 { return neutralBounded * 100 }

func readMemoryUsed() float64 { return neutralBounded * 100 }
