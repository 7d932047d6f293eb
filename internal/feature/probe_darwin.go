//go:build darwin

package feature

// readCPULoad and readMemoryUsed have no dependency-free sysctl binding in
// this module; until one is wired in, both report the documented neutral
// default rather than guessing (§4.6 "missing inputs use documented
// neutral defaults").
func readCPULoad() float64 { return neutralBounded * 100 }

func readMemoryUsed() float64 { return neutralBounded * 100 }
