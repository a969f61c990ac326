package config

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Engine binaries ship in several builds per instruction-set level; the
// default commands pick the best filename for this machine.

// StdEngineFilename selects the standard-engine binary name.
func StdEngineFilename() string {
	intel := cpuid.CPU.VendorID == cpuid.Intel
	sse42 := cpuid.CPU.Supports(cpuid.SSE42)
	avx2 := cpuid.CPU.Supports(cpuid.AVX2)

	var suffix string
	switch {
	case sse42 && intel && avx2:
		suffix = "-AVX2"
	case sse42 && intel:
		suffix = "-SSE42"
	}

	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("YaneuraOu-%v%v.exe", runtime.GOARCH, suffix)
	case "darwin":
		return "YaneuraOu-by-gcc"
	default:
		return fmt.Sprintf("YaneuraOu-by-gcc%v", suffix)
	}
}

// VariantEngineFilename selects the variant-engine binary name.
func VariantEngineFilename() string {
	intel := cpuid.CPU.VendorID == cpuid.Intel
	modern := cpuid.CPU.Supports(cpuid.SSE42) && cpuid.CPU.Supports(cpuid.POPCNT)
	bmi2 := cpuid.CPU.Supports(cpuid.BMI2)

	var suffix string
	switch {
	case modern && intel && bmi2:
		suffix = "-bmi2"
	case modern:
		suffix = "-modern"
	}

	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("fairy-stockfish-largeboard_%v%v.exe", runtime.GOARCH, suffix)
	case "darwin":
		return "fairy-stockfish-largeboard_x86-64"
	default:
		return fmt.Sprintf("fairy-stockfish-largeboard_x86-64%v", suffix)
	}
}
